package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ViniciusChelli/Seletto-sub001/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const actorColumns = `id, email, display_name, password_hash, is_active, email_confirmed_at, created_at, updated_at`

func scanActor(row pgx.Row) (*Actor, error) {
	var a Actor
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.IsActive, &a.EmailConfirmedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan actor: %w", err)
	}
	return &a, nil
}

func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Actor, error) {
	return scanActor(r.pool.QueryRow(ctx, `SELECT `+actorColumns+` FROM users WHERE email = $1`, email))
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*Actor, error) {
	return scanActor(r.pool.QueryRow(ctx, `SELECT `+actorColumns+` FROM users WHERE id = $1`, id))
}

func (r *PGRepository) Create(ctx context.Context, actor Actor) (*Actor, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, display_name, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		actor.Email, actor.DisplayName, actor.PasswordHash, actor.IsActive,
	).Scan(&actor.ID, &actor.CreatedAt, &actor.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &actor, nil
}

func (r *PGRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) MarkConfirmed(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email_confirmed_at = $2, updated_at = NOW() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) CreateToken(ctx context.Context, actorID int64, token, purpose string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO account_tokens (token, user_id, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		token, actorID, purpose, expiresAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// ConsumeToken deletes the token row and returns the bound actor id. A token
// works exactly once and only before its expiry.
func (r *PGRepository) ConsumeToken(ctx context.Context, token, purpose string) (int64, error) {
	var actorID int64
	err := r.pool.QueryRow(ctx, `
		DELETE FROM account_tokens
		WHERE token = $1 AND purpose = $2 AND expires_at > NOW()
		RETURNING user_id`,
		token, purpose,
	).Scan(&actorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("consume token: %w", err)
	}
	return actorID, nil
}

func (r *PGRepository) CreateSession(ctx context.Context, id string, actorID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		id, actorID, expiresAt, ip, ua)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
