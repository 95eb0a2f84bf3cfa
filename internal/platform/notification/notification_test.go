package notification

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"strings"
	"testing"
	"time"

	"github.com/arsmn/go-smsir/smsir"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

func referralData() map[string]string {
	return map[string]string{
		"patient_name":  "Maria Lopez",
		"specialty":     "Cardiología",
		"encounter_ref": "5f2c9a1e",
	}
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()

	subject, body, err := e.Render(TemplateReferralCreated, referralData())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if subject != "Nueva remisión a Cardiología" {
		t.Errorf("unexpected subject %q", subject)
	}
	for _, want := range []string{"Maria Lopez", "Cardiología", "5f2c9a1e"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body %q", want, body)
		}
	}
}

func TestTemplateEngine_MissingDataLeavesPlaceholder(t *testing.T) {
	e := NewTemplateEngine()
	e.RegisterTemplate(Template{ID: "t", Subject: "Hola {{name}}", Body: "{{name}} {{missing}}"})

	_, body, err := e.Render("t", map[string]string{"name": "Ana"})
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if body != "Ana {{missing}}" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestTemplateEngine_UnknownTemplate(t *testing.T) {
	if _, _, err := NewTemplateEngine().Render("nope", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr error
	}{
		{"national colombian mobile", "300 123 4567", "CO", "+573001234567", nil},
		{"already international", "+1 650-253-0000", "CO", "+16502530000", nil},
		{"lowercase region", "3001234567", "co", "+573001234567", nil},
		{"empty", "  ", "CO", "", ErrNoPhone},
		{"too short", "12", "CO", "", ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.region)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSMSNotifier_Notify(t *testing.T) {
	var got *smsir.UltraFastSendRequest
	n := &SMSNotifier{
		send: func(ctx context.Context, req *smsir.UltraFastSendRequest) error {
			got = req
			return nil
		},
		templateIDs:   map[string]string{TemplateReferralCreated: "123456"},
		defaultRegion: "CO",
	}

	err := n.Notify(context.Background(), Recipient{Phone: "3001234567"}, TemplateReferralCreated, referralData())
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if got.Mobile != "+573001234567" || got.TemplateID != "123456" {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Parameters) != 3 || got.Parameters[0].Key != "encounter_ref" || got.Parameters[2].Key != "specialty" {
		t.Errorf("expected parameters sorted by key, got %+v", got.Parameters)
	}
}

func TestSMSNotifier_Failures(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	calls := 0
	n := &SMSNotifier{
		send: func(ctx context.Context, req *smsir.UltraFastSendRequest) error {
			calls++
			return providerErr
		},
		templateIDs:   map[string]string{TemplateReferralCreated: "123456"},
		defaultRegion: "CO",
	}

	if err := n.Notify(context.Background(), Recipient{}, TemplateReferralCreated, nil); !errors.Is(err, ErrNoPhone) {
		t.Errorf("expected ErrNoPhone, got %v", err)
	}
	if err := n.Notify(context.Background(), Recipient{Phone: "3001234567"}, "unknown", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no provider call before validation passes, got %d", calls)
	}
	if err := n.Notify(context.Background(), Recipient{Phone: "3001234567"}, TemplateReferralCreated, nil); !errors.Is(err, providerErr) {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestEmailNotifier_Notify(t *testing.T) {
	var sent *gomail.Message
	n := &EmailNotifier{
		from:      "citas@example.org",
		templates: NewTemplateEngine(),
		dial: func(msg *gomail.Message) error {
			sent = msg
			return nil
		},
	}

	err := n.Notify(context.Background(), Recipient{Name: "Maria Lopez", Email: "maria@example.org"}, TemplateReferralCreated, referralData())
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	subj := sent.GetHeader("Subject")
	if len(subj) != 1 {
		t.Fatalf("expected one subject header, got %v", subj)
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subj[0])
	if err != nil {
		t.Fatalf("decode subject: %v", err)
	}
	if decoded != "Nueva remisión a Cardiología" {
		t.Errorf("unexpected subject %q", decoded)
	}
	var buf bytes.Buffer
	if _, err := sent.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error: %v", err)
	}
	if !strings.Contains(buf.String(), "maria@example.org") {
		t.Errorf("expected recipient in message:\n%s", buf.String())
	}
}

func TestEmailNotifier_Errors(t *testing.T) {
	n := &EmailNotifier{
		from:      "citas@example.org",
		templates: NewTemplateEngine(),
		dial:      func(msg *gomail.Message) error { return errors.New("connection refused") },
	}
	if err := n.Notify(context.Background(), Recipient{}, TemplateReferralCreated, nil); !errors.Is(err, ErrNoEmail) {
		t.Errorf("expected ErrNoEmail, got %v", err)
	}
	if err := n.Notify(context.Background(), Recipient{Email: "a@b.co"}, TemplateReferralCreated, nil); err == nil {
		t.Error("expected dial error")
	}
}

func TestEmailNotifier_RespectsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	n := &EmailNotifier{
		from:      "citas@example.org",
		templates: NewTemplateEngine(),
		dial: func(msg *gomail.Message) error {
			<-block
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := n.Notify(ctx, Recipient{Email: "a@b.co"}, TemplateReferralCreated, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(NewTemplateEngine(), zerolog.New(&buf))

	if err := n.Notify(context.Background(), Recipient{Phone: "3001234567"}, TemplateReferralCreated, referralData()); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if !strings.Contains(buf.String(), "Maria Lopez") {
		t.Errorf("expected rendered body in log, got %s", buf.String())
	}
	if err := n.Notify(context.Background(), Recipient{}, TemplateReferralCreated, nil); !errors.Is(err, ErrNoPhone) {
		t.Errorf("expected ErrNoPhone, got %v", err)
	}
}

func TestMockNotifier_FailFor(t *testing.T) {
	m := &MockNotifier{FailFor: map[string]error{"Psiquiatría": errors.New("provider down")}}

	if err := m.Notify(context.Background(), Recipient{}, TemplateReferralCreated, map[string]string{"specialty": "Cardiología"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := m.Notify(context.Background(), Recipient{}, TemplateReferralCreated, map[string]string{"specialty": "Psiquiatría"}); err == nil {
		t.Error("expected configured failure")
	}
	if len(m.Calls()) != 2 {
		t.Errorf("expected 2 calls, got %d", len(m.Calls()))
	}
}
