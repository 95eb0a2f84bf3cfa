package notification

import (
	"context"
	"fmt"

	"github.com/arsmn/go-smsir/smsir"
)

// SMSNotifier sends template messages through sms.ir UltraFast templates. The
// template key maps to a provider template ID; data become its parameters.
type SMSNotifier struct {
	send          func(ctx context.Context, req *smsir.UltraFastSendRequest) error
	templateIDs   map[string]string
	defaultRegion string
}

func NewSMSNotifier(apiKey, secretKey string, templateIDs map[string]string, defaultRegion string) *SMSNotifier {
	client := smsir.NewClient().WithAuthentication(apiKey, secretKey)
	return &SMSNotifier{
		send: func(ctx context.Context, req *smsir.UltraFastSendRequest) error {
			_, err := client.Verification.UltraFastSend(ctx, req)
			return err
		},
		templateIDs:   templateIDs,
		defaultRegion: defaultRegion,
	}
}

func (n *SMSNotifier) Notify(ctx context.Context, to Recipient, templateKey string, data map[string]string) error {
	templateID, ok := n.templateIDs[templateKey]
	if !ok || templateID == "" {
		return fmt.Errorf("%w: no sms template id for %q", ErrTemplateNotFound, templateKey)
	}

	mobile, err := NormalizePhone(to.Phone, n.defaultRegion)
	if err != nil {
		return err
	}

	params := make([]smsir.UltraFastParameter, 0, len(data))
	for _, kv := range sortedParams(data) {
		params = append(params, smsir.UltraFastParameter{Key: kv[0], Value: kv[1]})
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     mobile,
		TemplateID: templateID,
		Parameters: params,
	}
	if err := n.send(ctx, req); err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}
