package authtoken

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists refresh sessions in the refresh_sessions table
// (see migrations). The unique index on jti plus the conditional revoke
// below make rotation effectively atomic per (subject, jti): two racing
// rotations can both read the row, but only one UPDATE flips revoked_at.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (p *PostgresStore) Create(ctx context.Context, s *Session) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO refresh_sessions (user_id, token_hash, jti, expires_at, created_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.UserID, s.TokenHash, s.JTI, s.ExpiresAt, s.CreatedAt, s.UserAgent, s.IPAddress,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateJTI
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Find(ctx context.Context, userID, jti string) (*Session, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT user_id, token_hash, jti, expires_at, revoked_at, created_at, user_agent, ip_address
		FROM refresh_sessions
		WHERE user_id = $1 AND jti = $2`,
		userID, jti,
	)

	var s Session
	err := row.Scan(&s.UserID, &s.TokenHash, &s.JTI, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt, &s.UserAgent, &s.IPAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PostgresStore) Revoke(ctx context.Context, userID, jti string, at time.Time) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $3
		WHERE user_id = $1 AND jti = $2 AND revoked_at IS NULL`,
		userID, jti, at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore) RevokeAll(ctx context.Context, userID string, at time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, at,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresStore) Delete(ctx context.Context, userID, jti string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM refresh_sessions WHERE user_id = $1 AND jti = $2`,
		userID, jti,
	)
	return err
}

func (p *PostgresStore) ListActive(ctx context.Context, userID string, now time.Time) ([]*Session, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, token_hash, jti, expires_at, revoked_at, created_at, user_agent, ip_address
		FROM refresh_sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.UserID, &s.TokenHash, &s.JTI, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt, &s.UserAgent, &s.IPAddress); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Purge(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM refresh_sessions
		WHERE expires_at < $1
		   OR (revoked_at IS NOT NULL AND revoked_at < $2)`,
		now, now.Add(-retention),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
