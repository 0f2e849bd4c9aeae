package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/webhookd/webhookd/internal/repository"
)

type deliveryLogRepo struct {
	db *sql.DB
}

// Create writes a delivery log exactly once, at the point the worker reaches
// a terminal outcome for the task. There is no intermediate "pending" row
// and no Update method - the attempt history is immutable once recorded.
func (r *deliveryLogRepo) Create(ctx context.Context, log repository.DeliveryLog) (repository.DeliveryLog, error) {
	eventTypes, err := encodeStringSlice(log.EventTypes)
	if err != nil {
		return repository.DeliveryLog{}, fmt.Errorf("encode event types: %w", err)
	}
	attempts, err := encodeAttempts(log.Attempts)
	if err != nil {
		return repository.DeliveryLog{}, fmt.Errorf("encode attempts: %w", err)
	}
	now := log.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	log.CreatedAt = now

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delivery_logs (id, subscription_id, target_url, event_types, payload, attempts, final_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.SubscriptionID, log.TargetURL, eventTypes, log.Payload, attempts, string(log.FinalStatus), log.CreatedAt.Unix())
	if err != nil {
		return repository.DeliveryLog{}, err
	}
	return log, nil
}

func (r *deliveryLogRepo) FindByID(ctx context.Context, id string) (repository.DeliveryLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subscription_id, target_url, event_types, payload, attempts, final_status, created_at
		FROM delivery_logs WHERE id = ?
	`, id)
	log, err := scanDeliveryLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.DeliveryLog{}, repository.ErrNotFound
		}
		return repository.DeliveryLog{}, err
	}
	return log, nil
}

func (r *deliveryLogRepo) List(ctx context.Context, filter repository.DeliveryLogFilter) ([]repository.DeliveryLog, error) {
	query := `SELECT id, subscription_id, target_url, event_types, payload, attempts, final_status, created_at FROM delivery_logs`
	var (
		conditions []string
		args       []any
	)
	if filter.SubscriptionID != "" {
		conditions = append(conditions, "subscription_id = ?")
		args = append(args, filter.SubscriptionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "final_status = ?")
		args = append(args, string(filter.Status))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = 100
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.DeliveryLog
	for rows.Next() {
		log, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, log)
	}
	return out, rows.Err()
}

func (r *deliveryLogRepo) DeleteOlderThan(ctx context.Context, cutoffUnixSeconds int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM delivery_logs WHERE created_at < ?`, cutoffUnixSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanDeliveryLog(row rowScanner) (repository.DeliveryLog, error) {
	var (
		log        repository.DeliveryLog
		eventTypes sql.NullString
		attempts   sql.NullString
		status     string
		createdAt  int64
	)
	if err := row.Scan(&log.ID, &log.SubscriptionID, &log.TargetURL, &eventTypes, &log.Payload, &attempts, &status, &createdAt); err != nil {
		return repository.DeliveryLog{}, err
	}
	if eventTypes.Valid {
		types, err := decodeStringSlice(eventTypes.String)
		if err != nil {
			return repository.DeliveryLog{}, err
		}
		log.EventTypes = types
	}
	if attempts.Valid {
		if err := jsonUnmarshalAttempts(attempts.String, &log.Attempts); err != nil {
			return repository.DeliveryLog{}, err
		}
	}
	log.FinalStatus = repository.DeliveryStatus(status)
	log.CreatedAt = time.Unix(createdAt, 0).UTC()
	return log, nil
}
