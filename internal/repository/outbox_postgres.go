package repository

import (
	"context"
	"database/sql"
	"time"

	"accountability-service/internal/model"

	"github.com/google/uuid"
)

func insertOutbox(ctx context.Context, tx *sql.Tx, msg *model.OutboxMessage) error {
	if msg == nil {
		return nil
	}
	query := `
		INSERT INTO outbox_messages (id, routing_key, payload, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
	`
	_, err := tx.ExecContext(ctx, query, msg.ID, msg.RoutingKey, []byte(msg.Payload), msg.CreatedAt)
	return err
}

func (s *PostgresStore) PendingOutbox(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT id, routing_key, payload, created_at, retry_count, last_error, status
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var messages []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		var lastError sql.NullString
		var payload []byte
		err := rows.Scan(
			&m.ID,
			&m.RoutingKey,
			&payload,
			&m.CreatedAt,
			&m.RetryCount,
			&lastError,
			&m.Status,
		)
		if err != nil {
			return nil, classify(err)
		}
		m.Payload = payload
		if lastError.Valid {
			m.LastError = &lastError.String
		}
		messages = append(messages, m)
	}
	return messages, classify(rows.Err())
}

func (s *PostgresStore) MarkOutboxPublished(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE outbox_messages
		SET status = 'published', published_at = NOW()
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id)
	return classify(err)
}

func (s *PostgresStore) MarkOutboxFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		UPDATE outbox_messages
		SET retry_count = retry_count + 1, last_error = $2,
		    status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE 'pending' END
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, id, errMsg, model.MaxOutboxRetries)
	return classify(err)
}

func (s *PostgresStore) DeletePublishedOutbox(ctx context.Context, olderThan time.Duration) (int64, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		DELETE FROM outbox_messages
		WHERE status = 'published' AND published_at < $1
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, classify(err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) OutboxStats(ctx context.Context) (model.OutboxStats, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var stats model.OutboxStats
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox_messages GROUP BY status`)
	if err != nil {
		return stats, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var status model.OutboxStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, classify(err)
		}
		switch status {
		case model.OutboxPending:
			stats.Pending = count
		case model.OutboxPublished:
			stats.Published = count
		case model.OutboxFailed:
			stats.Failed = count
		}
	}
	return stats, classify(rows.Err())
}
