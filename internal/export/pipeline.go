// Package export selects cart records, renders them as CSV or spreadsheet
// files and delivers scheduled exports by email or FTP.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/angelmondragon/cartwatch-backend/internal/analytics"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/angelmondragon/cartwatch-backend/pkg/logger"
	"github.com/angelmondragon/cartwatch-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Triggers reported on export metrics.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerAdHoc    = "adhoc"
)

const defaultSubject = "Cart export"

// Request is what to export and how to render it.
type Request struct {
	Type    enums.ExportType   `json:"type"`
	Format  enums.ExportFormat `json:"format"`
	Columns []string           `json:"columns"`
	Filters Filters            `json:"filters"`
}

// Validate checks the request before any record is read.
func (r Request) Validate() error {
	if !r.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid export type")
	}
	if !r.Format.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid export format")
	}
	if r.Filters.Status != "" && !r.Filters.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid history filter")
	}
	return ValidateColumns(r.Columns)
}

// Job is a scheduled export: a request plus where to deliver it.
type Job struct {
	ID       string
	Name     string
	Request  Request
	Delivery Delivery
}

// Outcome is the bookkeeping recorded after a scheduled run.
type Outcome struct {
	RanAt    time.Time
	Status   enums.RunStatus
	Error    string
	Records  int
	FileName string
}

// Download is an ad-hoc export returned to the caller.
type Download struct {
	FileName    string
	ContentType string
	Content     []byte
	Records     int
}

type snapshotSource interface {
	Compute(ctx context.Context, w analytics.Window) (*analytics.Snapshot, error)
}

// PipelineParams groups the pipeline dependencies. Analytics, Mailer and
// Uploader are optional.
type PipelineParams struct {
	Source         recordSource
	Analytics      snapshotSource
	Mailer         Mailer
	Uploader       Uploader
	TempDir        string
	SiteName       string
	DefaultSubject string
	Metrics        *metrics.ExportMetrics
	Logger         *logger.Logger
	Now            func() time.Time
}

// Pipeline runs exports.
type Pipeline struct {
	source         recordSource
	analytics      snapshotSource
	mailer         Mailer
	uploader       Uploader
	tempDir        string
	siteName       string
	defaultSubject string
	metrics        *metrics.ExportMetrics
	logg           *logger.Logger
	now            func() time.Time
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.Source == nil {
		return nil, fmt.Errorf("export record source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	tempDir := params.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	subject := params.DefaultSubject
	if subject == "" {
		subject = defaultSubject
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:         params.Source,
		analytics:      params.Analytics,
		mailer:         params.Mailer,
		uploader:       params.Uploader,
		tempDir:        tempDir,
		siteName:       params.SiteName,
		defaultSubject: subject,
		metrics:        params.Metrics,
		logg:           params.Logger,
		now:            now,
	}, nil
}

// RunAdHoc renders an export for immediate download without delivering it.
func (p *Pipeline) RunAdHoc(ctx context.Context, req Request) (*Download, error) {
	content, records, name, err := p.render(ctx, req)
	if err != nil {
		p.metrics.ObserveRun(string(req.Format), TriggerAdHoc, string(enums.RunStatusFailed), 0)
		return nil, err
	}
	p.metrics.ObserveRun(string(req.Format), TriggerAdHoc, string(enums.RunStatusSuccess), records)
	return &Download{
		FileName:    name,
		ContentType: req.Format.ContentType(),
		Content:     content,
		Records:     records,
	}, nil
}

// RunScheduled renders the job, writes it to a transient file, delivers it
// and removes the file whatever the delivery result. Failures are reported in
// the outcome, never retried.
func (p *Pipeline) RunScheduled(ctx context.Context, job Job, trigger string) Outcome {
	if trigger == "" {
		trigger = TriggerSchedule
	}
	ctx = p.logg.WithScheduleID(ctx, job.ID)
	ctx = p.logg.WithExport(ctx, string(job.Request.Type), string(job.Request.Format), trigger)
	outcome := Outcome{RanAt: p.now().UTC()}

	err := p.runScheduled(ctx, job, &outcome)
	if err != nil {
		outcome.Status = enums.RunStatusFailed
		outcome.Error = errorText(err)
		p.logg.Error(ctx, "export.scheduled_run_failed", err)
	} else {
		outcome.Status = enums.RunStatusSuccess
		p.logg.Info(p.logg.WithFields(ctx, map[string]any{
			"records": outcome.Records,
			"file":    outcome.FileName,
		}), "export.scheduled_run_succeeded")
	}
	p.metrics.ObserveRun(string(job.Request.Format), trigger, string(outcome.Status), outcome.Records)
	return outcome
}

func (p *Pipeline) runScheduled(ctx context.Context, job Job, outcome *Outcome) error {
	content, records, name, err := p.render(ctx, job.Request)
	if err != nil {
		return err
	}
	outcome.Records = records
	outcome.FileName = name

	localPath, err := p.writeTransient(name, content)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logg.Warn(p.logg.WithField(ctx, "path", localPath), "export.transient_cleanup_failed")
		}
	}()

	return p.Deliver(ctx, job, localPath, name)
}

func (p *Pipeline) render(ctx context.Context, req Request) ([]byte, int, string, error) {
	if err := req.Validate(); err != nil {
		return nil, 0, "", err
	}
	records, err := p.SelectRecords(ctx, req.Type, req.Filters)
	if err != nil {
		return nil, 0, "", err
	}

	var snapshot *analytics.Snapshot
	if req.Type == enums.ExportTypeActiveCarts && p.analytics != nil {
		snapshot, err = p.analytics.Compute(ctx, analytics.LastDays(analytics.DefaultDays))
		if err != nil {
			return nil, 0, "", err
		}
	}

	now := p.now().UTC()
	table, err := BuildTable(records, snapshot, req.Columns, TableMeta{
		Type:        req.Type,
		Filters:     req.Filters,
		SiteName:    p.siteName,
		GeneratedAt: now,
	})
	if err != nil {
		return nil, 0, "", err
	}
	content, err := Serialize(table, req.Format)
	if err != nil {
		return nil, 0, "", err
	}
	return content, len(records), FileName(req.Type, req.Format, now), nil
}

// writeTransient stores content under a process-unique name in the temp dir.
func (p *Pipeline) writeTransient(name string, content []byte) (string, error) {
	unique := fmt.Sprintf("%s-%s-%s", p.now().UTC().Format("20060102T150405"), uuid.NewString(), name)
	localPath := filepath.Join(p.tempDir, unique)
	if err := os.WriteFile(localPath, content, 0o600); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write export file")
	}
	return localPath, nil
}

func errorText(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		if cause := typed.Unwrap(); cause != nil {
			return fmt.Sprintf("%s: %v", typed.Error(), cause)
		}
		return typed.Error()
	}
	return err.Error()
}
