package schedules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/export"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/kvstore"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	schedulesKey = "cartwatch_export_schedules"
	templatesKey = "cartwatch_export_templates"
)

type runner interface {
	RunScheduled(ctx context.Context, job export.Job, trigger string) export.Outcome
}

// RegistryParams groups the registry dependencies.
type RegistryParams struct {
	Store    kvstore.Store
	Timer    Timer
	Runner   runner
	Logger   *logger.Logger
	Location *time.Location
	Now      func() time.Time
}

// Registry owns export schedules and templates.
type Registry struct {
	mu     sync.Mutex
	store  kvstore.Store
	timer  Timer
	runner runner
	logg   *logger.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("export runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	timer := params.Timer
	if timer == nil {
		timer = NewKVTimer(params.Store)
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:  params.Store,
		timer:  timer,
		runner: params.Runner,
		logg:   params.Logger,
		loc:    loc,
		now:    now,
	}, nil
}

func (r *Registry) clock() time.Time {
	return r.now().In(r.loc)
}

// UpsertSchedule validates and stores the schedule, recomputes its next run
// and rebinds its timer. Bookkeeping fields of an existing schedule are kept.
func (r *Registry) UpsertSchedule(ctx context.Context, s Schedule) (string, error) {
	s.Name = strings.TrimSpace(s.Name)
	if err := s.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadSchedules(ctx)
	if err != nil {
		return "", err
	}
	now := r.clock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if existing, ok := all[s.ID]; ok {
		s.Created = existing.Created
		s.LastRun = existing.LastRun
		s.LastStatus = existing.LastStatus
		s.LastError = existing.LastError
	} else {
		s.Created = now.UTC()
	}
	s.NextRun = NextRun(s.Frequency, now).UTC()

	all[s.ID] = s
	if err := r.saveSchedules(ctx, all); err != nil {
		return "", err
	}
	// the previous binding survives a failed save
	if err := r.timer.Clear(ctx, s.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear schedule timer")
	}
	if s.Enabled {
		if err := r.timer.Bind(ctx, Binding{ScheduleID: s.ID, Frequency: s.Frequency, NextRun: s.NextRun}); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "bind schedule timer")
		}
	}

	r.logg.Info(r.logg.WithFields(r.logg.WithScheduleID(ctx, s.ID), map[string]any{
		"frequency": s.Frequency,
		"next_run":  s.NextRun,
		"enabled":   s.Enabled,
	}), "schedules.upserted")
	return s.ID, nil
}

// DeleteSchedule clears the timer binding and removes the schedule.
func (r *Registry) DeleteSchedule(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadSchedules(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
	}
	if err := r.timer.Clear(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear schedule timer")
	}
	delete(all, id)
	return r.saveSchedules(ctx, all)
}

// RunNow runs the schedule immediately and records the outcome. A failed
// export is reported on the returned schedule, not as an error.
func (r *Registry) RunNow(ctx context.Context, id string) (*Schedule, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	outcome := r.runner.RunScheduled(ctx, s.Job(), export.TriggerManual)
	return r.recordOutcome(ctx, id, outcome, false)
}

// RunDue runs every schedule whose binding is due and advances it to the next
// anchor. It returns how many exports ran.
func (r *Registry) RunDue(ctx context.Context, now time.Time) (int, error) {
	due, err := r.timer.Due(ctx, now)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list due schedules")
	}

	ran := 0
	var errs error
	for _, binding := range due {
		s, err := r.Get(ctx, binding.ScheduleID)
		switch {
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			errs = multierr.Append(errs, r.timer.Clear(ctx, binding.ScheduleID))
			continue
		case err != nil:
			errs = multierr.Append(errs, err)
			continue
		case !s.Enabled:
			errs = multierr.Append(errs, r.timer.Clear(ctx, s.ID))
			continue
		}

		outcome := r.runner.RunScheduled(ctx, s.Job(), export.TriggerSchedule)
		ran++
		if _, err := r.recordOutcome(ctx, s.ID, outcome, true); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return ran, errs
}

func (r *Registry) recordOutcome(ctx context.Context, id string, outcome export.Outcome, advance bool) (*Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadSchedules(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := all[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
	}
	s.record(outcome)
	if advance {
		s.NextRun = NextRun(s.Frequency, r.clock()).UTC()
	}
	all[id] = s
	if err := r.saveSchedules(ctx, all); err != nil {
		return nil, err
	}
	if advance && s.Enabled {
		if err := r.timer.Bind(ctx, Binding{ScheduleID: s.ID, Frequency: s.Frequency, NextRun: s.NextRun}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "advance schedule timer")
		}
	}
	return &s, nil
}

// List returns every schedule, oldest first.
func (r *Registry) List(ctx context.Context) ([]Schedule, error) {
	all, err := r.loadSchedules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Schedule, 0, len(all))
	for _, s := range all {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*Schedule, error) {
	all, err := r.loadSchedules(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := all[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
	}
	return &s, nil
}

// SaveTemplate validates and stores a template, assigning an id when absent.
func (r *Registry) SaveTemplate(ctx context.Context, t Template) (*Template, error) {
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Global {
		t.UserID = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if existing, ok := all[t.ID]; ok {
		t.Created = existing.Created
	} else {
		t.Created = r.now().UTC()
	}
	all[t.ID] = t
	if err := r.saveTemplates(ctx, all); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Registry) DeleteTemplate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadTemplates(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "template not found")
	}
	delete(all, id)
	return r.saveTemplates(ctx, all)
}

// ListTemplates returns global templates plus those owned by userID, by name.
func (r *Registry) ListTemplates(ctx context.Context, userID int64) ([]Template, error) {
	all, err := r.loadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Template, 0, len(all))
	for _, t := range all {
		if t.VisibleTo(userID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Registry) loadSchedules(ctx context.Context) (map[string]Schedule, error) {
	all := map[string]Schedule{}
	if err := r.load(ctx, schedulesKey, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (r *Registry) saveSchedules(ctx context.Context, all map[string]Schedule) error {
	return r.save(ctx, schedulesKey, all)
}

func (r *Registry) loadTemplates(ctx context.Context) (map[string]Template, error) {
	all := map[string]Template{}
	if err := r.load(ctx, templatesKey, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (r *Registry) saveTemplates(ctx context.Context, all map[string]Template) error {
	return r.save(ctx, templatesKey, all)
}

func (r *Registry) load(ctx context.Context, key string, dest any) error {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) || (err == nil && raw == "") {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load "+key)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decode "+key)
	}
	return nil
}

func (r *Registry) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode "+key)
	}
	if err := r.store.Set(ctx, key, string(raw)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "store "+key)
	}
	return nil
}
