package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	defaultArchiveAfterDays = 90
	defaultPurgeAfterDays   = 365
)

type cartArchiver interface {
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	PurgeArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type analyticsInvalidator interface {
	Invalidate(ctx context.Context, days *int) error
}

type CartArchiveJobParams struct {
	Logger           *logger.Logger
	Archiver         cartArchiver
	Analytics        analyticsInvalidator
	ArchiveAfterDays int
	PurgeAfterDays   int
}

// NewCartArchiveJob moves inactive carts into the archive table and purges
// old archive rows.
func NewCartArchiveJob(params CartArchiveJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Archiver == nil {
		return nil, fmt.Errorf("cart archiver required")
	}
	archiveAfter := params.ArchiveAfterDays
	if archiveAfter <= 0 {
		archiveAfter = defaultArchiveAfterDays
	}
	purgeAfter := params.PurgeAfterDays
	if purgeAfter <= 0 {
		purgeAfter = defaultPurgeAfterDays
	}
	return &cartArchiveJob{
		logg:         params.Logger,
		archiver:     params.Archiver,
		analytics:    params.Analytics,
		archiveAfter: archiveAfter,
		purgeAfter:   purgeAfter,
		now:          time.Now,
	}, nil
}

type cartArchiveJob struct {
	logg         *logger.Logger
	archiver     cartArchiver
	analytics    analyticsInvalidator
	archiveAfter int
	purgeAfter   int
	now          func() time.Time
}

func (j *cartArchiveJob) Name() string { return "cart-archive-retention" }

func (j *cartArchiveJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	archiveCutoff := now.AddDate(0, 0, -j.archiveAfter)
	purgeCutoff := now.AddDate(0, 0, -j.purgeAfter)

	var errs error
	archived, err := j.archiver.ArchiveOlderThan(ctx, archiveCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("archive carts: %w", err))
	}
	purged, err := j.archiver.PurgeArchiveOlderThan(ctx, purgeCutoff)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("purge archive: %w", err))
	}
	if archived > 0 && j.analytics != nil {
		if err := j.analytics.Invalidate(ctx, nil); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invalidate analytics: %w", err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"archive_cutoff": archiveCutoff,
		"purge_cutoff":   purgeCutoff,
		"rows_archived":  archived,
		"rows_purged":    purged,
	}), "cart archive retention complete")
	return errs
}
