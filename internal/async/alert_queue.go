// Package async holds the in-memory buffers that decouple request- and
// delivery-path code from slow side channels. The delivery worker drops an
// ops alert here and moves on; a scheduled job drains the buffer later.
package async

import (
	"maps"
	"sync"

	"github.com/webhookd/webhookd/internal/notifier"
)

// maxBufferedAlerts caps each alert channel. Alerts are best-effort
// operator signals: a persistently broken target URL produces one alert
// per exhausted task, and with no transport configured nothing ever drains
// them — beyond the cap the oldest are discarded and counted rather than
// letting the buffer grow for as long as the target stays down.
const maxBufferedAlerts = 256

// buffer is a capacity-bounded FIFO that discards its oldest entries on
// overflow and keeps a count of what it discarded.
type buffer[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// push appends item, evicting from the front when the buffer is full.
func (b *buffer[T]) push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.limit {
		over := len(b.items) - b.limit + 1
		b.items = append([]T(nil), b.items[over:]...)
		b.dropped += uint64(over)
	}
	b.items = append(b.items, item)
}

// pushFront puts item at the head so the next drain retries it first. A
// full buffer evicts its newest entry instead: the failed dispatch is
// older news the operator has not seen yet.
func (b *buffer[T]) pushFront(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) >= b.limit {
		b.items = b.items[:b.limit-1]
		b.dropped++
	}
	b.items = append([]T{item}, b.items...)
}

// drain returns everything buffered and resets the buffer.
func (b *buffer[T]) drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.items
	b.items = nil
	return drained
}

func (b *buffer[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// takeDropped returns the overflow count accumulated since the last call
// and resets it.
func (b *buffer[T]) takeDropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.dropped
	b.dropped = 0
	return n
}

// AlertQueue buffers outbound ops alerts (email and telegram shaped) for
// background dispatch. Enqueueing never blocks and never fails; a crash
// loses buffered alerts, which is acceptable for operator notifications.
type AlertQueue struct {
	emails    buffer[notifier.EmailRequest]
	telegrams buffer[notifier.TelegramRequest]
}

// NewAlertQueue returns an empty alert queue.
func NewAlertQueue() *AlertQueue {
	return &AlertQueue{
		emails:    buffer[notifier.EmailRequest]{limit: maxBufferedAlerts},
		telegrams: buffer[notifier.TelegramRequest]{limit: maxBufferedAlerts},
	}
}

// EnqueueEmail appends a pending email alert.
func (q *AlertQueue) EnqueueEmail(req notifier.EmailRequest) {
	if q == nil || req.To == "" {
		return
	}
	req.Variables = maps.Clone(req.Variables)
	q.emails.push(req)
}

// EnqueueTelegram appends a pending telegram alert.
func (q *AlertQueue) EnqueueTelegram(req notifier.TelegramRequest) {
	if q == nil || req.ChatID == "" {
		return
	}
	req.Variables = maps.Clone(req.Variables)
	q.telegrams.push(req)
}

// DrainEmails returns all pending email alerts and clears the buffer.
func (q *AlertQueue) DrainEmails() []notifier.EmailRequest {
	if q == nil {
		return nil
	}
	return q.emails.drain()
}

// DrainTelegrams returns all pending telegram alerts and clears the buffer.
func (q *AlertQueue) DrainTelegrams() []notifier.TelegramRequest {
	if q == nil {
		return nil
	}
	return q.telegrams.drain()
}

// RequeueEmail puts back an email alert whose dispatch failed, so the next
// drain retries it first.
func (q *AlertQueue) RequeueEmail(req notifier.EmailRequest) {
	if q == nil || req.To == "" {
		return
	}
	q.emails.pushFront(req)
}

// RequeueTelegram puts back a telegram alert whose dispatch failed.
func (q *AlertQueue) RequeueTelegram(req notifier.TelegramRequest) {
	if q == nil || req.ChatID == "" {
		return
	}
	q.telegrams.pushFront(req)
}

// Pending reports how many alerts are buffered, for operational metrics.
func (q *AlertQueue) Pending() int {
	if q == nil {
		return 0
	}
	return q.emails.len() + q.telegrams.len()
}

// TakeDroppedEmails reports and resets how many email alerts were
// discarded on overflow since the last call.
func (q *AlertQueue) TakeDroppedEmails() uint64 {
	if q == nil {
		return 0
	}
	return q.emails.takeDropped()
}

// TakeDroppedTelegrams reports and resets how many telegram alerts were
// discarded on overflow since the last call.
func (q *AlertQueue) TakeDroppedTelegrams() uint64 {
	if q == nil {
		return 0
	}
	return q.telegrams.takeDropped()
}
