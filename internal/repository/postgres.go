package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"accountability-service/internal/model"

	"github.com/lib/pq"
)

const complaintColumns = `id, category, sub_category, title, description, location_address, ward,
	anonymous, reporter_id, reporter_name, severity, status, created_at, updated_at,
	acknowledged_at, in_progress_at, resolved_at, sla_deadline, action_deadline, escalated_at, version`

type PostgresStore struct {
	db        *sql.DB
	opTimeout time.Duration
}

func NewPostgresStore(db *sql.DB, opTimeout time.Duration) *PostgresStore {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &PostgresStore{db: db, opTimeout: opTimeout}
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, opTimeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresStore(db, opTimeout), nil
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*model.Complaint, error) {
	c := &model.Complaint{}
	var reporterID, reporterName sql.NullString
	var ackAt, progressAt, resolvedAt, actionDeadline, escalatedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.Category,
		&c.SubCategory,
		&c.Title,
		&c.Description,
		&c.LocationAddress,
		&c.Ward,
		&c.Anonymous,
		&reporterID,
		&reporterName,
		&c.Severity,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
		&ackAt,
		&progressAt,
		&resolvedAt,
		&c.SLADeadline,
		&actionDeadline,
		&escalatedAt,
		&c.Version,
	)
	if err != nil {
		return nil, err
	}

	if reporterID.Valid {
		c.ReporterID = &reporterID.String
	}
	if reporterName.Valid {
		c.ReporterName = &reporterName.String
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.SLADeadline = c.SLADeadline.UTC()
	c.AcknowledgedAt = nullTime(ackAt)
	c.InProgressAt = nullTime(progressAt)
	c.ResolvedAt = nullTime(resolvedAt)
	c.ActionDeadline = nullTime(actionDeadline)
	c.EscalatedAt = nullTime(escalatedAt)
	return c, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func (s *PostgresStore) Create(ctx context.Context, c *model.Complaint, event *model.OutboxMessage) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if c.Version == 0 {
		c.Version = 1
	}
	query := `
		INSERT INTO complaints (` + complaintColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = tx.ExecContext(ctx, query,
		c.ID,
		c.Category,
		c.SubCategory,
		c.Title,
		c.Description,
		c.LocationAddress,
		c.Ward,
		c.Anonymous,
		c.ReporterID,
		c.ReporterName,
		c.Severity,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
		c.AcknowledgedAt,
		c.InProgressAt,
		c.ResolvedAt,
		c.SLADeadline,
		c.ActionDeadline,
		c.EscalatedAt,
		c.Version,
	)
	if err != nil {
		return classify(err)
	}
	if err := insertOutbox(ctx, tx, event); err != nil {
		return classify(err)
	}
	return classify(tx.Commit())
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Complaint, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`
	c, err := scanComplaint(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// Update locks the row for the duration of mutate. Only the lifecycle columns
// are written back; everything else is immutable after filing.
func (s *PostgresStore) Update(ctx context.Context, id string, mutate MutateFunc) (*model.Complaint, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback()

	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1 FOR UPDATE`
	current, err := scanComplaint(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, classify(err)
	}

	working := current.Clone()
	event, err := mutate(working)
	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return current, err
		}
		return nil, err
	}

	update := `
		UPDATE complaints
		SET status = $2, updated_at = $3, acknowledged_at = $4, in_progress_at = $5,
		    resolved_at = $6, escalated_at = $7, version = version + 1
		WHERE id = $1
		RETURNING version
	`
	err = tx.QueryRowContext(ctx, update,
		id,
		working.Status,
		working.UpdatedAt,
		working.AcknowledgedAt,
		working.InProgressAt,
		working.ResolvedAt,
		working.EscalatedAt,
	).Scan(&working.Version)
	if err != nil {
		return nil, classify(err)
	}
	if err := insertOutbox(ctx, tx, event); err != nil {
		return nil, classify(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(err)
	}
	return working, nil
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]*model.Complaint, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE escalated_at IS NULL
		  AND status IN ('pending', 'acknowledged', 'in_progress')
		  AND sla_deadline < $1
		  AND (acknowledged_at IS NULL OR acknowledged_at >= sla_deadline)
		ORDER BY sla_deadline ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []*model.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}

func (s *PostgresStore) ListPublic(ctx context.Context, filter model.PublicFilter) iter.Seq2[*model.Complaint, error] {
	return func(yield func(*model.Complaint, error) bool) {
		ctx, cancel := s.opCtx(ctx)
		defer cancel()

		query, args := publicQuery(filter)
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, classify(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanComplaint(rows)
			if err != nil {
				yield(nil, classify(err))
				return
			}
			if !yield(c.Public(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, classify(err))
		}
	}
}

func publicQuery(f model.PublicFilter) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Ward != "" {
		where = append(where, "LOWER(ward) = LOWER("+arg(f.Ward)+")")
	}
	if f.EscalatedOnly {
		where = append(where, "escalated_at IS NOT NULL")
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		p := arg("%" + escapeLike(search) + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := pageBounds(f)
	query += " ORDER BY created_at DESC, id ASC LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	return query, args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]*model.Complaint, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+complaintColumns+` FROM complaints ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []*model.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// classify maps driver errors onto the service error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return model.Transient(err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03", "57P01", "53300":
			return model.Transient(err)
		case "22P02":
			// malformed uuid can never match a stored complaint
			return model.ErrNotFound
		}
		if pqErr.Code.Class() == "08" {
			return model.Transient(err)
		}
		return err
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") || strings.Contains(msg, "bad connection") {
		return model.Transient(err)
	}
	return err
}
