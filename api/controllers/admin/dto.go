package admin

import (
	"strings"

	"github.com/angelmondragon/cartwatch-backend/internal/export"
	"github.com/angelmondragon/cartwatch-backend/internal/schedules"
	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
)

const redacted = "********"

type exportRequest struct {
	Type    string   `json:"type" validate:"required"`
	Format  string   `json:"format" validate:"required"`
	Columns []string `json:"columns" validate:"omitempty,dive,export_column"`
	Days    int      `json:"days" validate:"omitempty,min=1,max=3650"`
	Status  string   `json:"status"`
}

// toRequest falls back to export.DefaultColumns when the one-off export
// selects no columns. Schedules must name theirs.
func (r exportRequest) toRequest() export.Request {
	columns := r.Columns
	if len(columns) == 0 {
		columns = append([]string(nil), export.DefaultColumns...)
	}
	return export.Request{
		Type:    enums.ExportType(strings.TrimSpace(r.Type)),
		Format:  enums.ExportFormat(strings.TrimSpace(r.Format)),
		Columns: columns,
		Filters: export.Filters{Days: r.Days, Status: enums.HistoryFilter(strings.TrimSpace(r.Status))},
	}
}

type emailRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject" validate:"max=255"`
	Body       string   `json:"body" validate:"max=10000"`
}

type ftpRequest struct {
	Host       string `json:"host"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	User       string `json:"user"`
	Password   string `json:"password"`
	RemotePath string `json:"remote_path"`
}

type deliveryRequest struct {
	Method string        `json:"method" validate:"required"`
	Email  *emailRequest `json:"email"`
	FTP    *ftpRequest   `json:"ftp"`
}

type scheduleRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name" validate:"required,max=200"`
	ExportType string          `json:"export_type" validate:"required"`
	Format     string          `json:"format" validate:"required"`
	Frequency  string          `json:"frequency" validate:"required"`
	Delivery   deliveryRequest `json:"delivery"`
	Columns    []string        `json:"columns" validate:"omitempty,dive,export_column"`
	Days       int             `json:"days" validate:"omitempty,min=1,max=3650"`
	Status     string          `json:"status"`
	Enabled    *bool           `json:"enabled"`
}

func (r scheduleRequest) toSchedule() schedules.Schedule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	delivery := export.Delivery{Method: enums.DeliveryMethod(strings.TrimSpace(r.Delivery.Method))}
	if e := r.Delivery.Email; e != nil {
		recipients := make([]string, 0, len(e.Recipients))
		for _, rcpt := range e.Recipients {
			if v := strings.TrimSpace(rcpt); v != "" {
				recipients = append(recipients, v)
			}
		}
		delivery.Email = &export.EmailSettings{Recipients: recipients, Subject: strings.TrimSpace(e.Subject), Body: e.Body}
	}
	if f := r.Delivery.FTP; f != nil {
		delivery.FTP = &export.FTPSettings{
			Host:       strings.TrimSpace(f.Host),
			Port:       f.Port,
			User:       strings.TrimSpace(f.User),
			Password:   f.Password,
			RemotePath: strings.TrimSpace(f.RemotePath),
		}
	}
	return schedules.Schedule{
		ID:         strings.TrimSpace(r.ID),
		Name:       r.Name,
		ExportType: enums.ExportType(strings.TrimSpace(r.ExportType)),
		Format:     enums.ExportFormat(strings.TrimSpace(r.Format)),
		Frequency:  enums.ExportFrequency(strings.TrimSpace(r.Frequency)),
		Delivery:   delivery,
		Columns:    r.Columns,
		Filters:    export.Filters{Days: r.Days, Status: enums.HistoryFilter(strings.TrimSpace(r.Status))},
		Enabled:    enabled,
	}
}

// redact hides FTP credentials before a schedule leaves the API.
func redact(s schedules.Schedule) schedules.Schedule {
	if s.Delivery.FTP != nil && s.Delivery.FTP.Password != "" {
		ftp := *s.Delivery.FTP
		ftp.Password = redacted
		s.Delivery.FTP = &ftp
	}
	return s
}

type templateRequest struct {
	ID      string   `json:"id"`
	Name    string   `json:"name" validate:"required,max=200"`
	Columns []string `json:"columns" validate:"required,min=1,dive,export_column"`
	Global  bool     `json:"global"`
}
