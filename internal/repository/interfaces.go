package repository

import "context"

// SubscriptionRepository persists webhook subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub Subscription) (Subscription, error)
	FindByID(ctx context.Context, id string) (Subscription, error)
	// FindByIDFiltered additionally requires the stored record's EventTypes
	// to intersect eventTypes (when both are non-empty), returning
	// ErrNotFound when the row exists but does not opt in.
	FindByIDFiltered(ctx context.Context, id string, eventTypes []string) (Subscription, error)
	List(ctx context.Context, filter SubscriptionFilter) ([]Subscription, error)
	Update(ctx context.Context, sub Subscription) (Subscription, error)
	Delete(ctx context.Context, id string) error
}

// DeliveryLogRepository persists delivery attempt histories.
type DeliveryLogRepository interface {
	Create(ctx context.Context, log DeliveryLog) (DeliveryLog, error)
	FindByID(ctx context.Context, id string) (DeliveryLog, error)
	List(ctx context.Context, filter DeliveryLogFilter) ([]DeliveryLog, error)
	DeleteOlderThan(ctx context.Context, cutoffUnixSeconds int64) (int64, error)
}

// Store aggregates every repository the service layer depends on.
type Store interface {
	Subscriptions() SubscriptionRepository
	DeliveryLogs() DeliveryLogRepository
}
