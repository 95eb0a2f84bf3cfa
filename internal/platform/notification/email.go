package notification

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier renders a template and sends it as a plain-text email.
type EmailNotifier struct {
	from      string
	templates *TemplateEngine
	dial      func(msg *gomail.Message) error
}

func NewEmailNotifier(cfg SMTPConfig, templates *TemplateEngine) *EmailNotifier {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &EmailNotifier{
		from:      cfg.From,
		templates: templates,
		dial:      func(msg *gomail.Message) error { return d.DialAndSend(msg) },
	}
}

func (n *EmailNotifier) buildMessage(to Recipient, templateKey string, data map[string]string) (*gomail.Message, error) {
	addr := strings.TrimSpace(to.Email)
	if addr == "" {
		return nil, ErrNoEmail
	}
	subject, body, err := n.templates.Render(templateKey, data)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	if to.Name != "" {
		msg.SetAddressHeader("To", addr, to.Name)
	} else {
		msg.SetHeader("To", addr)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg, nil
}

// Notify sends the message. gomail has no context support, so the dial runs
// in a goroutine and ctx only bounds how long Notify waits for it.
func (n *EmailNotifier) Notify(ctx context.Context, to Recipient, templateKey string, data map[string]string) error {
	msg, err := n.buildMessage(to, templateKey, data)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- n.dial(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
