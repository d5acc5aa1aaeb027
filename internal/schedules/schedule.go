// Package schedules keeps export schedules and column templates, computes
// their next run and dispatches due exports.
package schedules

import (
	"strings"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/export"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
)

// Schedule is a persisted recurring export.
type Schedule struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	ExportType enums.ExportType      `json:"export_type"`
	Format     enums.ExportFormat    `json:"format"`
	Frequency  enums.ExportFrequency `json:"frequency"`
	Delivery   export.Delivery       `json:"delivery"`
	Columns    []string              `json:"columns"`
	Filters    export.Filters        `json:"filters"`
	Enabled    bool                  `json:"enabled"`
	Created    time.Time             `json:"created"`
	LastRun    *time.Time            `json:"last_run,omitempty"`
	LastStatus enums.RunStatus       `json:"last_status,omitempty"`
	LastError  string                `json:"last_error,omitempty"`
	NextRun    time.Time             `json:"next_run"`
}

// Validate rejects incomplete configuration before anything is stored.
func (s Schedule) Validate() error {
	problems := map[string]string{}
	if strings.TrimSpace(s.Name) == "" {
		problems["name"] = "required"
	}
	if !s.ExportType.IsValid() {
		problems["export_type"] = "must be active_carts or cart_history"
	}
	if !s.Format.IsValid() {
		problems["format"] = "unsupported format"
	}
	if !s.Frequency.IsValid() {
		problems["frequency"] = "must be daily, weekly or monthly"
	}
	if s.Filters.Status != "" && !s.Filters.Status.IsValid() {
		problems["filters.status"] = "unknown filter"
	}
	if err := export.ValidateColumns(s.Columns); err != nil {
		problems["columns"] = pkgerrors.As(err).Message()
	}
	switch s.Delivery.Method {
	case enums.DeliveryMethodEmail:
		if s.Delivery.Email == nil || len(export.ValidRecipients(s.Delivery.Email.Recipients)) == 0 {
			problems["delivery.email.recipients"] = "at least one valid address is required"
		}
	case enums.DeliveryMethodFTP:
	default:
		problems["delivery.method"] = "must be email or ftp"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid export schedule").WithDetails(problems)
	}
	return nil
}

// Job converts the schedule into an export job.
func (s Schedule) Job() export.Job {
	return export.Job{
		ID:   s.ID,
		Name: s.Name,
		Request: export.Request{
			Type:    s.ExportType,
			Format:  s.Format,
			Columns: s.Columns,
			Filters: s.Filters,
		},
		Delivery: s.Delivery,
	}
}

func (s *Schedule) record(outcome export.Outcome) {
	ranAt := outcome.RanAt
	s.LastRun = &ranAt
	s.LastStatus = outcome.Status
	s.LastError = outcome.Error
}

// Template is a named, reusable column selection. UserID is ignored when
// Global is set.
type Template struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Columns []string  `json:"columns"`
	UserID  int64     `json:"user_id,omitempty"`
	Global  bool      `json:"global"`
	Created time.Time `json:"created"`
}

func (t Template) Validate() error {
	problems := map[string]string{}
	if strings.TrimSpace(t.Name) == "" {
		problems["name"] = "required"
	}
	if err := export.ValidateColumns(t.Columns); err != nil {
		problems["columns"] = pkgerrors.As(err).Message()
	}
	if !t.Global && t.UserID <= 0 {
		problems["user_id"] = "required unless the template is global"
	}
	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid export template").WithDetails(problems)
	}
	return nil
}

// VisibleTo reports whether userID may use the template.
func (t Template) VisibleTo(userID int64) bool {
	return t.Global || (userID > 0 && t.UserID == userID)
}
