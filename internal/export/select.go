package export

import (
	"context"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
)

const (
	activeWindow       = 24 * time.Hour
	DefaultHistoryDays = 30
)

// Filters narrows a cart_history selection.
type Filters struct {
	Days   int                 `json:"days,omitempty"`
	Status enums.HistoryFilter `json:"status,omitempty"`
}

func (f Filters) days() int {
	if f.Days <= 0 {
		return DefaultHistoryDays
	}
	return f.Days
}

func (f Filters) status() enums.HistoryFilter {
	if f.Status == "" {
		return enums.HistoryFilterAll
	}
	return f.Status
}

type recordSource interface {
	ListActiveSince(ctx context.Context, since time.Time) ([]models.CartRecord, error)
	ListHistory(ctx context.Context, since time.Time, filter enums.HistoryFilter) ([]models.CartRecord, error)
}

// SelectRecords returns the records for exportType, newest first. An empty
// selection is a NO_DATA error.
func (p *Pipeline) SelectRecords(ctx context.Context, exportType enums.ExportType, filters Filters) ([]models.CartRecord, error) {
	now := p.now()
	var (
		rows []models.CartRecord
		err  error
	)
	switch exportType {
	case enums.ExportTypeActiveCarts:
		rows, err = p.source.ListActiveSince(ctx, now.Add(-activeWindow))
	case enums.ExportTypeCartHistory:
		if !filters.status().IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid history filter")
		}
		since := now.AddDate(0, 0, -filters.days())
		rows, err = p.source.ListHistory(ctx, since, filters.status())
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid export type")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "select export records")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNoData, "no cart records match the export")
	}
	return rows, nil
}
