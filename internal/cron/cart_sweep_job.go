package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

type cartSweeper interface {
	Sweep(ctx context.Context, now time.Time) (cart.SweepResult, error)
}

type CartSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper cartSweeper
}

// NewCartSweepJob re-derives cart statuses from their age each cycle.
func NewCartSweepJob(params CartSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("cart sweeper required")
	}
	return &cartSweepJob{logg: params.Logger, sweeper: params.Sweeper, now: time.Now}, nil
}

type cartSweepJob struct {
	logg    *logger.Logger
	sweeper cartSweeper
	now     func() time.Time
}

func (j *cartSweepJob) Name() string { return "cart-status-sweep" }

func (j *cartSweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("cart sweep: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"recoverable": result.Recoverable,
		"abandoned":   result.Abandoned,
		"cleared":     result.Cleared,
	}), "cart status sweep complete")
	return nil
}
