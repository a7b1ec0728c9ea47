package mail

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lnhs-portal/docrequest-api/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a single outbound email.
type Message struct {
	ToName      string
	ToAddress   string
	Subject     string
	HTMLContent string
	TextContent string
}

// SendgridMailer delivers messages through the SendGrid v3 API.
type SendgridMailer struct {
	key     string
	from    *sgmail.Email
	replyTo *sgmail.Email
}

// NewSendgridMailer builds a mailer from the email configuration.
func NewSendgridMailer(cfg config.EmailConfig) *SendgridMailer {
	m := &SendgridMailer{
		key:  cfg.SendgridAPIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
	if cfg.ReplyTo != "" {
		m.replyTo = sgmail.NewEmail(cfg.FromName, cfg.ReplyTo)
	}
	return m
}

// Send dispatches one message. Any non-2xx response is an error; the caller
// decides whether delivery failure matters.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if m.key == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	if m.replyTo != nil {
		v3.SetReplyTo(m.replyTo)
	}
	v3.AddPersonalizations(p)
	v3.AddContent(
		sgmail.NewContent("text/plain", msg.TextContent),
		sgmail.NewContent("text/html", msg.HTMLContent),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
