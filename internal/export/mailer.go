package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/angelmondragon/cartwatch-backend/pkg/errors"
	"github.com/resendlabs/resend-go"
)

type emailSender interface {
	Send(params *resend.SendEmailRequest) (resend.SendEmailResponse, error)
}

// ResendMailer delivers export mail through the Resend API.
type ResendMailer struct {
	emails    emailSender
	fromEmail string
	fromName  string
}

func NewResendMailer(apiKey, fromEmail, fromName string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfigIncomplete, "resend api key is required")
	}
	if fromEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfigIncomplete, "sender address is required")
	}
	client := resend.NewClient(apiKey)
	return &ResendMailer{emails: client.Emails, fromEmail: fromEmail, fromName: fromName}, nil
}

func (m *ResendMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &resend.SendEmailRequest{
		From:    m.from(),
		To:      mail.To,
		Subject: mail.Subject,
		Text:    mail.Body,
	}
	if mail.AttachmentPath != "" {
		content, err := os.ReadFile(mail.AttachmentPath)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		name := mail.AttachmentName
		if name == "" {
			name = filepath.Base(mail.AttachmentPath)
		}
		req.Attachments = []resend.Attachment{{Content: string(content), Filename: name}}
	}
	if _, err := m.emails.Send(req); err != nil {
		return fmt.Errorf("send via resend: %w", err)
	}
	return nil
}

func (m *ResendMailer) from() string {
	if m.fromName == "" {
		return m.fromEmail
	}
	return fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
}
