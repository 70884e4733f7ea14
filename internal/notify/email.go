package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig describes the mailbox used for lead e-mails. An empty Host
// disables e-mail notifications.
type SMTPConfig struct {
	Host     string   `yaml:"host" envconfig:"SMTP_HOST"`
	Port     int      `yaml:"port" envconfig:"SMTP_PORT"`
	Username string   `yaml:"username" envconfig:"SMTP_USERNAME"`
	Password string   `yaml:"password" envconfig:"SMTP_PASSWORD"`
	From     string   `yaml:"from" envconfig:"SMTP_FROM"`
	FromName string   `yaml:"from_name" envconfig:"SMTP_FROM_NAME"`
	To       []string `yaml:"to" envconfig:"SMTP_TO"`
	Subject  string   `yaml:"subject" envconfig:"SMTP_SUBJECT"`
}

// Enabled reports whether a host is configured.
func (c SMTPConfig) Enabled() bool { return strings.TrimSpace(c.Host) != "" }

// Normalize fills defaults and validates an enabled configuration.
func (c *SMTPConfig) Normalize() error {
	if !c.Enabled() {
		return nil
	}
	if c.Port == 0 {
		c.Port = 587
	}
	if c.Subject == "" {
		c.Subject = "New lead request"
	}
	if c.FromName == "" {
		c.FromName = "Lead bot"
	}
	if strings.TrimSpace(c.From) == "" {
		return errors.New("notify.smtp.from is required when notify.smtp.host is set")
	}
	to := c.To[:0]
	for _, addr := range c.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	c.To = to
	if len(c.To) == 0 {
		return errors.New("notify.smtp.to needs at least one address")
	}
	return nil
}

// Email sends the admin text as a plain-text message.
type Email struct {
	cfg SMTPConfig
}

// NewEmail validates cfg and returns an e-mail notifier.
func NewEmail(cfg SMTPConfig) (*Email, error) {
	if !cfg.Enabled() {
		return nil, errors.New("notify: smtp host is not set")
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &Email{cfg: cfg}, nil
}

func (e *Email) message(text string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(e.cfg.FromName, e.cfg.From); err != nil {
		return nil, fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(e.cfg.To...); err != nil {
		return nil, fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(e.cfg.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, text)
	return msg, nil
}

// Notify implements lead.Notifier.
func (e *Email) Notify(ctx context.Context, text string) error {
	msg, err := e.message(text)
	if err != nil {
		return err
	}
	opts := []gomail.Option{
		gomail.WithPort(e.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp", addr)
		}),
	}
	if e.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(e.cfg.Username),
			gomail.WithPassword(e.cfg.Password),
		)
	}
	client, err := gomail.NewClient(e.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
