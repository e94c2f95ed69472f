// Package notify sends summary emails after long-running operations so
// nobody has to babysit a multi-hour download batch.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

type Service struct {
	config SmtpConfig
}

func NewService(config SmtpConfig) Service {
	return Service{config: config}
}

// Configured reports whether there is enough config to send anything.
// An unconfigured service is a silent no-op so callers never have to
// special-case it.
func (s Service) Configured() bool {
	return s.config.Server != "" && len(s.config.To) > 0
}

func (s Service) SendSummary(ctx context.Context, subject, body string) error {
	_, span := tracer.Start(ctx, "SendSummary")
	defer span.End()

	if !s.Configured() {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("SIPD Bot <%s>", s.config.EmailAddress)
	mail.To = s.config.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
