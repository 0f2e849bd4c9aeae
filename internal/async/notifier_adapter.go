package async

import (
	"context"
	"fmt"

	"github.com/webhookd/webhookd/internal/notifier"
)

// QueueNotifier satisfies notifier.Service by buffering requests on an
// AlertQueue instead of sending them inline. The delivery worker holds this
// so a terminal failure never costs it a network round trip.
type QueueNotifier struct {
	queue *AlertQueue
}

// NewQueueNotifier wraps queue as a notifier.Service.
func NewQueueNotifier(queue *AlertQueue) notifier.Service {
	return &QueueNotifier{queue: queue}
}

// SendEmail enqueues the email for asynchronous dispatch.
func (n *QueueNotifier) SendEmail(_ context.Context, req notifier.EmailRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("alert queue unavailable")
	}
	n.queue.EnqueueEmail(req)
	return nil
}

// SendTelegram enqueues the telegram message for asynchronous dispatch.
func (n *QueueNotifier) SendTelegram(_ context.Context, req notifier.TelegramRequest) error {
	if n == nil || n.queue == nil {
		return fmt.Errorf("alert queue unavailable")
	}
	n.queue.EnqueueTelegram(req)
	return nil
}
