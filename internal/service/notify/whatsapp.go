package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farmcoop/internal/domain/models"
	client "github.com/mamadbah2/farmcoop/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// WhatsAppNotifier sends notifications as text messages to the farm
// operators through the WhatsApp Cloud API.
type WhatsAppNotifier struct {
	client     client.Client
	recipients []string
	logger     *zap.Logger
}

// NewWhatsAppNotifier wires a WhatsApp sink for the given recipients.
func NewWhatsAppNotifier(c client.Client, recipients []string, logger *zap.Logger) *WhatsAppNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppNotifier{client: c, recipients: recipients, logger: logger}
}

// Notify sends n to every recipient.
func (w *WhatsAppNotifier) Notify(ctx context.Context, n models.Notification) error {
	return w.Send(ctx, fmt.Sprintf("%s\n%s", n.Title, n.Message))
}

// Send pushes a free-form text to every recipient.
func (w *WhatsAppNotifier) Send(ctx context.Context, body string) error {
	if len(w.recipients) == 0 {
		return errors.New("no whatsapp recipients configured")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var errs []error
	for _, to := range w.recipients {
		_, err := w.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
			To:         to,
			Body:       body,
			PreviewURL: false,
		})
		if err != nil {
			fields := []zap.Field{zap.String("to", to), zap.Error(err)}
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				fields = append(fields, zap.String("fbtrace_id", apiErr.TraceID), zap.Bool("temporary", apiErr.Temporary()))
			}
			w.logger.Error("failed sending whatsapp message", fields...)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
