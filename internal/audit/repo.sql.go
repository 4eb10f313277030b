package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLRepository provides PostgreSQL backed access to audit_logs.
type SQLRepository struct {
	pool *pgxpool.Pool
}

// NewSQLRepository constructs a repository.
func NewSQLRepository(pool *pgxpool.Pool) *SQLRepository {
	return &SQLRepository{pool: pool}
}

// TimelineWindow returns a filtered window of entries ordered newest first.
func (r *SQLRepository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs WHERE 1=1`)
	args := make([]any, 0, 7)
	add := func(clause string, value any) {
		args = append(args, value)
		query.WriteString(" AND " + clause + "$" + strconv.Itoa(len(args)))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= ", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= ", filters.To)
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		add("actor_id::text = ", actor)
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		add("entity = ", entity)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		add("action = ", action)
	}
	args = append(args, offset)
	query.WriteString(" ORDER BY occurred_at DESC OFFSET $" + strconv.Itoa(len(args)))
	args = append(args, limit)
	query.WriteString(" LIMIT $" + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Recent returns the newest entries without filters.
func (r *SQLRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows pgxRows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var meta []byte
		var at time.Time
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &at); err != nil {
			return nil, err
		}
		entry.At = at
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
