package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes the rendered message to the log instead of sending it.
type LogNotifier struct {
	templates *TemplateEngine
	logger    zerolog.Logger
}

func NewLogNotifier(templates *TemplateEngine, logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{templates: templates, logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, to Recipient, templateKey string, data map[string]string) error {
	if to.Phone == "" && to.Email == "" {
		return ErrNoPhone
	}
	_, body, err := n.templates.Render(templateKey, data)
	if err != nil {
		return err
	}
	n.logger.Info().
		Str("template", templateKey).
		Str("phone", to.Phone).
		Str("email", to.Email).
		Str("body", body).
		Msg("notification (log channel)")
	return nil
}
