package mailer

import (
	"fmt"
	"html"
	"log"

	"github.com/rahulvalluru1-source/fieldtrack/internal/config"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"gopkg.in/gomail.v2"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer e-mails high-severity notifications to the configured recipient.
type Mailer struct {
	sender Sender
	from   string
	to     string
	lg     *log.Logger
}

func New(cfg config.SMTPConfig, lg *log.Logger) *Mailer {
	return &Mailer{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.User,
		to:     cfg.AlertTo,
		lg:     lg,
	}
}

func NewWithSender(sender Sender, from, to string, lg *log.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, to: to, lg: lg}
}

func (m *Mailer) Alert(n models.Notification) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] %s alert", n.Severity(), n.Type))
	msg.SetBody("text/html", fmt.Sprintf(
		"<p>%s</p><p>Raised at %s.</p>",
		html.EscapeString(n.Message),
		n.Timestamp.Format("2006-01-02 15:04:05 MST"),
	))

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}

	m.lg.Printf("alert mail for notification %d sent to %s", n.ID, m.to)
	return nil
}
