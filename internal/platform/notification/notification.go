// Package notification delivers patient notifications through a provider
// adapter (SMS via sms.ir, email via SMTP, or a log-only channel for
// development). Messages are rendered from named templates.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TemplateReferralCreated announces a new pending-scheduling encounter spawned
// by a referral.
const TemplateReferralCreated = "referral-created"

var (
	ErrTemplateNotFound = errors.New("notification template not found")
	ErrNoPhone          = errors.New("recipient has no phone number")
	ErrNoEmail          = errors.New("recipient has no email address")
	ErrInvalidPhone     = errors.New("recipient phone number is not valid")
)

// Recipient is the person a notification is addressed to.
type Recipient struct {
	Name  string
	Phone string
	Email string
}

// Notifier sends one templated notification. A nil error means the provider
// accepted the message.
type Notifier interface {
	Notify(ctx context.Context, to Recipient, templateKey string, data map[string]string) error
}

// Template is a message with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine renders templates by ID. It is safe for concurrent use.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.RegisterTemplate(Template{
		ID:      TemplateReferralCreated,
		Subject: "Nueva remisión a {{specialty}}",
		Body:    "Hola {{patient_name}}, se generó una remisión a {{specialty}}. Su cita quedó pendiente de programación (ref. {{encounter_ref}}). Le contactaremos para asignar fecha y hora.",
	})
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render replaces {{key}} placeholders with data. Placeholders without data
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrTemplateNotFound, templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// sortedParams returns data as key/value pairs in key order.
func sortedParams(data map[string]string) [][2]string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, data[k]}
	}
	return out
}

// NotifyCall records a single call to MockNotifier.
type NotifyCall struct {
	To       Recipient
	Template string
	Data     map[string]string
}

// MockNotifier is a test double for Notifier. FailFor makes Notify fail for
// calls whose data contains a matching value.
type MockNotifier struct {
	mu      sync.Mutex
	calls   []NotifyCall
	FailFor map[string]error
}

func (m *MockNotifier) Notify(_ context.Context, to Recipient, templateKey string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, NotifyCall{To: to, Template: templateKey, Data: data})
	for _, v := range data {
		if err, ok := m.FailFor[v]; ok {
			return err
		}
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockNotifier) Calls() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NotifyCall, len(m.calls))
	copy(out, m.calls)
	return out
}
