package export

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/pkg/db/models"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	active      []models.CartRecord
	history     []models.CartRecord
	activeSince time.Time
	since       time.Time
	filter      enums.HistoryFilter
	err         error
}

func (f *fakeSource) ListActiveSince(_ context.Context, since time.Time) ([]models.CartRecord, error) {
	f.activeSince = since
	return f.active, f.err
}

func (f *fakeSource) ListHistory(_ context.Context, since time.Time, filter enums.HistoryFilter) ([]models.CartRecord, error) {
	f.since = since
	f.filter = filter
	return f.history, f.err
}

type fakeAnalytics struct {
	snapshot *analytics.Snapshot
	windows  []analytics.Window
}

func (f *fakeAnalytics) Compute(_ context.Context, w analytics.Window) (*analytics.Snapshot, error) {
	f.windows = append(f.windows, w)
	return f.snapshot, nil
}

type sentMail struct {
	mail    Mail
	content []byte
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, mail Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, _ := os.ReadFile(mail.AttachmentPath)
	f.sent = append(f.sent, sentMail{mail: mail, content: content})
	return f.err
}

type fakeUploader struct {
	calls   []FTPSettings
	existed bool
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, settings FTPSettings, localPath string) error {
	f.calls = append(f.calls, settings)
	_, statErr := os.Stat(localPath)
	f.existed = statErr == nil
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "export-test", Output: io.Discard})
}

func record(name, total string, status enums.CartStatus, age time.Duration) models.CartRecord {
	return models.CartRecord{
		ID:           uuid.New(),
		SessionKey:   "sess-" + name,
		CustomerName: name,
		Items: types.CartItems{
			{ProductID: 1, Name: "Widget", Quantity: 1, UnitPrice: decimal.RequireFromString(total)},
		},
		Total:       decimal.RequireFromString(total),
		LastUpdated: baseNow.Add(-age),
		IsActive:    status == enums.CartStatusActive,
		Status:      status,
	}
}

func newTestPipeline(t *testing.T, params PipelineParams) *Pipeline {
	t.Helper()
	if params.Logger == nil {
		params.Logger = testLogger()
	}
	if params.Now == nil {
		params.Now = func() time.Time { return baseNow }
	}
	if params.TempDir == "" {
		params.TempDir = t.TempDir()
	}
	if params.SiteName == "" {
		params.SiteName = "Test Shop"
	}
	p, err := NewPipeline(params)
	require.NoError(t, err)
	return p
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
