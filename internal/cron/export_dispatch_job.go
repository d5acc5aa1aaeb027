package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

type exportDispatcher interface {
	RunDue(ctx context.Context, now time.Time) (int, error)
}

type ExportDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher exportDispatcher
}

// NewExportDispatchJob runs export schedules whose next run has passed.
func NewExportDispatchJob(params ExportDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("export dispatcher required")
	}
	return &exportDispatchJob{logg: params.Logger, dispatcher: params.Dispatcher, now: time.Now}, nil
}

type exportDispatchJob struct {
	logg       *logger.Logger
	dispatcher exportDispatcher
	now        func() time.Time
}

func (j *exportDispatchJob) Name() string { return "export-dispatch" }

func (j *exportDispatchJob) Run(ctx context.Context) error {
	ran, err := j.dispatcher.RunDue(ctx, j.now().UTC())
	j.logg.Info(j.logg.WithField(ctx, "exports_run", ran), "export dispatch complete")
	if err != nil {
		return fmt.Errorf("export dispatch: %w", err)
	}
	return nil
}
