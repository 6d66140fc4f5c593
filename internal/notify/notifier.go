package notify

import (
	"context"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// Default SMTP submission settings. The defaults target Gmail, matching the
// most common personal-automation setup; any STARTTLS-capable submission
// server works.
const (
	DefaultServer = "smtp.gmail.com"
	DefaultPort   = 587
)

// Config holds the SMTP account used for notifications.
//
// Config is a plain value constructed by the caller; the notifier performs
// no prompting or environment lookups of its own. An empty Recipient means
// loopback operation: notifications are sent from the sender address to
// itself.
type Config struct {
	// Server is the SMTP submission server. Defaults to [DefaultServer].
	Server string

	// Port is the SMTP submission port. Defaults to [DefaultPort].
	Port int

	// Sender is the account the notification is sent from, and the
	// username used to authenticate.
	Sender string

	// Recipient is the notification destination.
	// Empty means loopback (recipient == sender).
	Recipient string

	// Password authenticates the sender account.
	Password string
}

// To returns the effective recipient, applying loopback when none is set.
func (c Config) To() string {
	if c.Recipient == "" {
		return c.Sender
	}
	return c.Recipient
}

// Notifier sends stock-change notification emails over SMTP.
//
// Sends are best-effort: any failure — dial, STARTTLS, authentication, or
// submission — is logged and reported as ok=false rather than returned as
// an error, so a flaky mail server never takes down the poll loop. A fresh
// SMTP connection is established per send and closed afterwards; there is
// no long-lived session to go stale between polls.
type Notifier struct {
	cfg    Config
	logger *slog.Logger
}

// NewNotifier creates a [Notifier] for the given account.
//
// Empty Server and zero Port fall back to [DefaultServer] and [DefaultPort].
// A nil logger falls back to [slog.Default].
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, logger: logger}
}

// Notify sends a plain-text email with the given subject and body.
//
// Returns true if the message was accepted by the server, false on any
// failure. Failures are logged at warning level with the failing stage.
func (n *Notifier) Notify(ctx context.Context, subject, body string) bool {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		n.logger.Warn("notification failed", "stage", "compose", "error", err.Error())
		return false
	}
	if err := msg.To(n.cfg.To()); err != nil {
		n.logger.Warn("notification failed", "stage", "compose", "error", err.Error())
		return false
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(n.cfg.Server,
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Sender),
		mail.WithPassword(n.cfg.Password),
	)
	if err != nil {
		n.logger.Warn("notification failed", "stage", "connect", "error", err.Error())
		return false
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		n.logger.Warn("notification failed", "stage", "send", "error", err.Error())
		return false
	}

	n.logger.Debug("notification sent",
		"to", n.cfg.To(),
		"subject", subject,
	)
	return true
}
