package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/webhookd/webhookd/internal/repository"
)

type subscriptionRepo struct {
	db *sql.DB
}

func (r *subscriptionRepo) Create(ctx context.Context, sub repository.Subscription) (repository.Subscription, error) {
	eventTypes, err := encodeStringSlice(sub.EventTypes)
	if err != nil {
		return repository.Subscription{}, fmt.Errorf("encode event types: %w", err)
	}
	now := sub.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, target_url, event_types, secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.TargetURL, eventTypes, sub.Secret, sub.CreatedAt.Unix(), sub.UpdatedAt.Unix())
	if err != nil {
		return repository.Subscription{}, err
	}
	return sub, nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, id string) (repository.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, target_url, event_types, secret, created_at, updated_at
		FROM subscriptions WHERE id = ?
	`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Subscription{}, repository.ErrNotFound
		}
		return repository.Subscription{}, err
	}
	return sub, nil
}

// FindByIDFiltered loads the subscription and requires its EventTypes to
// intersect eventTypes when both sides are non-empty; a row that exists but
// does not opt in is reported as ErrNotFound, matching the "not subscribed"
// behavior dispatch needs when it re-resolves a task's target.
func (r *subscriptionRepo) FindByIDFiltered(ctx context.Context, id string, eventTypes []string) (repository.Subscription, error) {
	sub, err := r.FindByID(ctx, id)
	if err != nil {
		return repository.Subscription{}, err
	}
	if !sub.MatchesAny(eventTypes) {
		return repository.Subscription{}, repository.ErrNotFound
	}
	return sub, nil
}

func (r *subscriptionRepo) List(ctx context.Context, filter repository.SubscriptionFilter) ([]repository.Subscription, error) {
	query := `SELECT id, target_url, event_types, secret, created_at, updated_at FROM subscriptions`
	var args []any
	if filter.EventType != "" {
		// event_types is stored as a JSON array; match via LIKE on the
		// quoted string, which is sufficient given event type names never
		// contain quotes or backslashes.
		query += ` WHERE event_types LIKE ?`
		args = append(args, "%\""+filter.EventType+"\"%")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (r *subscriptionRepo) Update(ctx context.Context, sub repository.Subscription) (repository.Subscription, error) {
	eventTypes, err := encodeStringSlice(sub.EventTypes)
	if err != nil {
		return repository.Subscription{}, fmt.Errorf("encode event types: %w", err)
	}
	sub.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET target_url = ?, event_types = ?, secret = ?, updated_at = ?
		WHERE id = ?
	`, sub.TargetURL, eventTypes, sub.Secret, sub.UpdatedAt.Unix(), sub.ID)
	if err != nil {
		return repository.Subscription{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return repository.Subscription{}, err
	}
	if affected == 0 {
		return repository.Subscription{}, repository.ErrNotFound
	}
	return sub, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (repository.Subscription, error) {
	var (
		sub        repository.Subscription
		eventTypes sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&sub.ID, &sub.TargetURL, &eventTypes, &sub.Secret, &createdAt, &updatedAt); err != nil {
		return repository.Subscription{}, err
	}
	if eventTypes.Valid {
		types, err := decodeStringSlice(eventTypes.String)
		if err != nil {
			return repository.Subscription{}, err
		}
		sub.EventTypes = types
	}
	sub.CreatedAt = time.Unix(createdAt, 0).UTC()
	sub.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return sub, nil
}
