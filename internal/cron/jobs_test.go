package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/cart"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
)

var jobNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeSweeper struct {
	at     time.Time
	result cart.SweepResult
	err    error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (cart.SweepResult, error) {
	f.at = now
	return f.result, f.err
}

func TestCartSweepJobUsesCurrentTime(t *testing.T) {
	sweeper := &fakeSweeper{result: cart.SweepResult{Recoverable: 2}}
	jobIface, err := NewCartSweepJob(CartSweepJobParams{Logger: testLogger(), Sweeper: sweeper})
	if err != nil {
		t.Fatalf("NewCartSweepJob: %v", err)
	}
	job := jobIface.(*cartSweepJob)
	job.now = func() time.Time { return jobNow }

	if job.Name() != "cart-status-sweep" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sweeper.at.Equal(jobNow) {
		t.Fatalf("expected sweep at %s, got %s", jobNow, sweeper.at)
	}

	sweeper.err = errors.New("db down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep error to propagate")
	}
}

type fakeArchiver struct {
	archiveCutoff time.Time
	purgeCutoff   time.Time
	archived      int64
	archiveErr    error
	purgeErr      error
	purgeCalls    int
}

func (f *fakeArchiver) ArchiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.archiveCutoff = cutoff
	return f.archived, f.archiveErr
}

func (f *fakeArchiver) PurgeArchiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.purgeCutoff = cutoff
	f.purgeCalls++
	return 0, f.purgeErr
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate(context.Context, *int) error {
	f.calls++
	return nil
}

func newArchiveJob(t *testing.T, archiver *fakeArchiver, inv *fakeInvalidator) *cartArchiveJob {
	t.Helper()
	jobIface, err := NewCartArchiveJob(CartArchiveJobParams{
		Logger:           testLogger(),
		Archiver:         archiver,
		Analytics:        inv,
		ArchiveAfterDays: 30,
	})
	if err != nil {
		t.Fatalf("NewCartArchiveJob: %v", err)
	}
	job := jobIface.(*cartArchiveJob)
	job.now = func() time.Time { return jobNow }
	return job
}

func TestCartArchiveJobCutoffs(t *testing.T) {
	archiver := &fakeArchiver{archived: 4}
	inv := &fakeInvalidator{}
	job := newArchiveJob(t, archiver, inv)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := jobNow.AddDate(0, 0, -30); !archiver.archiveCutoff.Equal(want) {
		t.Fatalf("expected archive cutoff %s, got %s", want, archiver.archiveCutoff)
	}
	if want := jobNow.AddDate(0, 0, -defaultPurgeAfterDays); !archiver.purgeCutoff.Equal(want) {
		t.Fatalf("expected purge cutoff %s, got %s", want, archiver.purgeCutoff)
	}
	if inv.calls != 1 {
		t.Fatalf("expected analytics invalidated once, got %d", inv.calls)
	}
}

func TestCartArchiveJobPurgesEvenWhenArchiveFails(t *testing.T) {
	archiver := &fakeArchiver{archiveErr: errors.New("locked")}
	inv := &fakeInvalidator{}
	job := newArchiveJob(t, archiver, inv)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected archive error")
	}
	if archiver.purgeCalls != 1 {
		t.Fatalf("expected purge to still run, got %d calls", archiver.purgeCalls)
	}
	if inv.calls != 0 {
		t.Fatalf("expected no invalidation when nothing moved, got %d", inv.calls)
	}
}

type fakeDispatcher struct {
	at  time.Time
	ran int
	err error
}

func (f *fakeDispatcher) RunDue(_ context.Context, now time.Time) (int, error) {
	f.at = now
	return f.ran, f.err
}

func TestExportDispatchJob(t *testing.T) {
	dispatcher := &fakeDispatcher{ran: 3}
	jobIface, err := NewExportDispatchJob(ExportDispatchJobParams{Logger: testLogger(), Dispatcher: dispatcher})
	if err != nil {
		t.Fatalf("NewExportDispatchJob: %v", err)
	}
	job := jobIface.(*exportDispatchJob)
	job.now = func() time.Time { return jobNow }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !dispatcher.at.Equal(jobNow) {
		t.Fatalf("expected dispatch at %s, got %s", jobNow, dispatcher.at)
	}

	dispatcher.err = errors.New("kv down")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected dispatch error")
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	if _, err := NewCartSweepJob(CartSweepJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected sweeper required")
	}
	if _, err := NewCartArchiveJob(CartArchiveJobParams{Archiver: &fakeArchiver{}}); err == nil {
		t.Fatal("expected logger required")
	}
	if _, err := NewExportDispatchJob(ExportDispatchJobParams{Logger: testLogger()}); err == nil {
		t.Fatal("expected dispatcher required")
	}
}
