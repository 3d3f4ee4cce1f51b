package mailer

import (
	"context"
	"fmt"
	"html"

	"github.com/wneessen/go-mail"

	"neovar/internal/models"
)

// Mailer forwards help queries to the admin inbox over SMTP.
type Mailer struct {
	host     string
	port     int
	from     string
	to       string
	password string
}

type Config struct {
	Host       string
	Port       int
	AdminEmail string
	Password   string
}

func New(cfg Config) *Mailer {
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &Mailer{
		host:     cfg.Host,
		port:     port,
		from:     cfg.AdminEmail,
		to:       cfg.AdminEmail,
		password: cfg.Password,
	}
}

// Enabled reports whether SMTP credentials were configured. When disabled,
// help queries are still persisted; only the notification is skipped.
func (m *Mailer) Enabled() bool {
	return m != nil && m.host != "" && m.from != "" && m.password != ""
}

func (m *Mailer) SendHelpQuery(ctx context.Context, q models.HelpQuery) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(m.to); err != nil {
		return fmt.Errorf("mail to: %w", err)
	}
	if err := msg.ReplyTo(q.Email); err != nil {
		return fmt.Errorf("mail reply-to: %w", err)
	}
	msg.Subject("Help Query: " + q.Subject)
	msg.SetBodyString(mail.TypeTextHTML, helpQueryBody(q))

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.from),
		mail.WithPassword(m.password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func helpQueryBody(q models.HelpQuery) string {
	return fmt.Sprintf(
		"<p>Query came from Neovar User <b>%s</b> (%s)</p><p><b>Subject:</b> %s</p><p>%s</p>",
		html.EscapeString(q.Name),
		html.EscapeString(q.Email),
		html.EscapeString(q.Subject),
		html.EscapeString(q.Message),
	)
}
