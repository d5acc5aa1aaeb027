package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/angelmondragon/cartwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// EmailSettings configures email delivery.
type EmailSettings struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body,omitempty"`
}

// FTPSettings configures FTP delivery. RemotePath ending in "/" names a
// directory; the export file name is appended.
type FTPSettings struct {
	Host       string `json:"host"`
	Port       int    `json:"port,omitempty"`
	User       string `json:"user"`
	Password   string `json:"password,omitempty"`
	RemotePath string `json:"remote_path,omitempty"`
}

// Address returns host:port, defaulting to port 21.
func (s FTPSettings) Address() string {
	port := s.Port
	if port <= 0 {
		port = 21
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}

// Delivery is a delivery method plus its settings.
type Delivery struct {
	Method enums.DeliveryMethod `json:"method"`
	Email  *EmailSettings       `json:"email,omitempty"`
	FTP    *FTPSettings         `json:"ftp,omitempty"`
}

// Mail is one outgoing message with a single attachment.
type Mail struct {
	To             []string
	Subject        string
	Body           string
	AttachmentPath string
	AttachmentName string
}

// Mailer sends one message to every recipient in a single call.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// Uploader stores a local file at settings.RemotePath.
type Uploader interface {
	Upload(ctx context.Context, settings FTPSettings, localPath string) error
}

var validate = validator.New()

// ValidRecipients returns the well-formed addresses in recipients.
func ValidRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, raw := range recipients {
		addr := strings.TrimSpace(raw)
		if validate.Var(addr, "required,email") == nil {
			out = append(out, addr)
		}
	}
	return out
}

// Deliver hands the file at localPath to the job's delivery method.
func (p *Pipeline) Deliver(ctx context.Context, job Job, localPath, fileName string) error {
	switch job.Delivery.Method {
	case enums.DeliveryMethodEmail:
		return p.deliverEmail(ctx, job, localPath, fileName)
	case enums.DeliveryMethodFTP:
		return p.deliverFTP(ctx, job, localPath, fileName)
	default:
		return pkgerrors.New(pkgerrors.CodeConfigIncomplete, "delivery method not configured")
	}
}

func (p *Pipeline) deliverEmail(ctx context.Context, job Job, localPath, fileName string) error {
	settings := job.Delivery.Email
	if settings == nil {
		return pkgerrors.New(pkgerrors.CodeConfigIncomplete, "email settings missing")
	}
	to := ValidRecipients(settings.Recipients)
	if len(to) == 0 {
		return pkgerrors.New(pkgerrors.CodeDelivery, "no valid email recipients")
	}
	if p.mailer == nil {
		return pkgerrors.New(pkgerrors.CodeConfigIncomplete, "mail transport not configured")
	}

	subject := settings.Subject
	if subject == "" {
		subject = p.defaultSubject
		if job.Name != "" {
			subject += ": " + job.Name
		}
	}
	body := settings.Body
	if body == "" {
		body = fmt.Sprintf("Attached is the %s export generated by %s.", job.Request.Type, p.siteName)
	}

	err := p.mailer.Send(ctx, Mail{
		To:             to,
		Subject:        subject,
		Body:           body,
		AttachmentPath: localPath,
		AttachmentName: fileName,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "send export email")
	}
	return nil
}

func (p *Pipeline) deliverFTP(ctx context.Context, job Job, localPath, fileName string) error {
	settings := job.Delivery.FTP
	if settings == nil || strings.TrimSpace(settings.Host) == "" || strings.TrimSpace(settings.User) == "" {
		return pkgerrors.New(pkgerrors.CodeConfigIncomplete, "ftp host and user are required")
	}
	if p.uploader == nil {
		return pkgerrors.New(pkgerrors.CodeConfigIncomplete, "ftp transport not configured")
	}

	target := *settings
	target.RemotePath = remotePath(settings.RemotePath, fileName)
	if err := p.uploader.Upload(ctx, target, localPath); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDelivery, err, "upload export over ftp")
	}
	return nil
}

func remotePath(configured, fileName string) string {
	switch {
	case configured == "":
		return fileName
	case strings.HasSuffix(configured, "/"):
		return path.Join(configured, fileName)
	default:
		return configured
	}
}
