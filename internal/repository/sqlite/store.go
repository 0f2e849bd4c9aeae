package sqlite

import (
	"database/sql"

	"github.com/webhookd/webhookd/internal/repository"
)

// Store wires SQLite-backed repository implementations.
type Store struct {
	db            *sql.DB
	subscriptions repository.SubscriptionRepository
	deliveryLogs  repository.DeliveryLogRepository
}

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		subscriptions: &subscriptionRepo{db: db},
		deliveryLogs:  &deliveryLogRepo{db: db},
	}
}

func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return s.subscriptions
}

func (s *Store) DeliveryLogs() repository.DeliveryLogRepository {
	return s.deliveryLogs
}
