// Package analytics computes cart rollups with a single aggregate query and
// caches the result per window.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/cache"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	cachePrefix     = "cart_analytics"
	DefaultCacheTTL = 300 * time.Second
)

type aggregator interface {
	Aggregate(ctx context.Context, bounds cart.AggregateBounds) (cart.AggregateRow, error)
}

// EngineParams groups the engine dependencies.
type EngineParams struct {
	Source aggregator
	Cache  cache.Store
	TTL    time.Duration
	Logger *logger.Logger
	Now    func() time.Time
}

// Engine computes and caches analytics snapshots.
type Engine struct {
	source aggregator
	kv     cache.Store
	ttl    time.Duration
	logg   *logger.Logger
	now    func() time.Time
}

// NewEngine validates the dependencies. A nil cache disables caching.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("analytics source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{source: params.Source, kv: params.Cache, ttl: ttl, logg: params.Logger, now: now}, nil
}

// Compute returns the snapshot for the window, reading through the cache.
// Failed computations are never cached.
func (e *Engine) Compute(ctx context.Context, w Window) (*Snapshot, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	key := w.CacheKey()
	ctx = e.logg.WithField(ctx, "analytics_key", key)

	if e.kv != nil {
		var cached Snapshot
		hit, err := cache.GetJSON(ctx, e.kv, key, &cached)
		if err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "analytics.cache.read_failed")
		} else if hit {
			return &cached, nil
		}
	}

	now := e.now().UTC()
	start, end := w.Bounds(now)
	row, err := e.source.Aggregate(ctx, cart.AggregateBounds{
		Start:        start,
		End:          end,
		ActiveCutoff: now.Add(-cart.RecoverableAfter),
		StaleCutoff:  now.Add(-cart.AbandonedAfter),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAnalytics, err, "aggregate cart analytics")
	}

	snapshot := newSnapshot(row)
	snapshot.GeneratedAt = now
	if w.IsRange() {
		snapshot.From = w.From.Format(DateLayout)
		snapshot.To = w.To.Format(DateLayout)
	} else {
		snapshot.WindowDays = w.Days
	}

	if e.kv != nil {
		if err := cache.SetJSON(ctx, e.kv, key, snapshot, e.ttl); err != nil {
			e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "analytics.cache.write_failed")
		}
	}
	return snapshot, nil
}

// Invalidate drops one cached window, or with nil days every standard window
// and every cached calendar range.
func (e *Engine) Invalidate(ctx context.Context, days *int) error {
	if e.kv == nil {
		return nil
	}
	if days != nil {
		return e.kv.Del(ctx, windowKey(*days))
	}
	keys := make([]string, 0, len(StandardWindows))
	for _, d := range StandardWindows {
		keys = append(keys, windowKey(d))
	}
	var errs error
	errs = multierr.Append(errs, e.kv.Del(ctx, keys...))
	errs = multierr.Append(errs, e.kv.DeletePattern(ctx, cache.Key(cachePrefix, "range", "*")))
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "invalidate analytics cache")
	}
	return nil
}
