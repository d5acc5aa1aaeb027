package schedules

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/angelmondragon/cartwatch-backend/pkg/kvstore"
	"github.com/goccy/go-json"
)

const timerKey = "cartwatch_export_timers"

// Binding is a periodic firing registered for one schedule.
type Binding struct {
	ScheduleID string                `json:"schedule_id"`
	Frequency  enums.ExportFrequency `json:"frequency"`
	NextRun    time.Time             `json:"next_run"`
}

// Timer is the periodic trigger a schedule is bound to. A schedule holds at
// most one binding.
type Timer interface {
	Bind(ctx context.Context, binding Binding) error
	Clear(ctx context.Context, scheduleID string) error
	Due(ctx context.Context, now time.Time) ([]Binding, error)
}

// KVTimer keeps bindings in the key-value store and is polled by the cron
// worker through Due.
type KVTimer struct {
	mu    sync.Mutex
	store kvstore.Store
}

func NewKVTimer(store kvstore.Store) *KVTimer {
	return &KVTimer{store: store}
}

// Bind replaces any binding held by the schedule.
func (t *KVTimer) Bind(ctx context.Context, binding Binding) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	all, err := t.load(ctx)
	if err != nil {
		return err
	}
	binding.NextRun = binding.NextRun.UTC()
	all[binding.ScheduleID] = binding
	return t.save(ctx, all)
}

func (t *KVTimer) Clear(ctx context.Context, scheduleID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	all, err := t.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[scheduleID]; !ok {
		return nil
	}
	delete(all, scheduleID)
	return t.save(ctx, all)
}

// Due returns bindings whose next run is at or before now, oldest first.
func (t *KVTimer) Due(ctx context.Context, now time.Time) ([]Binding, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	all, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	var due []Binding
	for _, b := range all {
		if !b.NextRun.After(now) {
			due = append(due, b)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].NextRun.Equal(due[j].NextRun) {
			return due[i].ScheduleID < due[j].ScheduleID
		}
		return due[i].NextRun.Before(due[j].NextRun)
	})
	return due, nil
}

func (t *KVTimer) load(ctx context.Context) (map[string]Binding, error) {
	raw, err := t.store.Get(ctx, timerKey)
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && raw == "") {
		return map[string]Binding{}, nil
	}
	if err != nil {
		return nil, err
	}
	all := map[string]Binding{}
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (t *KVTimer) save(ctx context.Context, all map[string]Binding) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, timerKey, string(raw))
}
