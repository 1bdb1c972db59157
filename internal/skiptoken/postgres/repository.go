// Package postgres provides PostgreSQL implementation of the skip token repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/skiptoken"
)

// Repository implements the skiptoken.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create stores a new token.
func (r *Repository) Create(ctx context.Context, token *domain.SkipToken) error {
	query := `
		INSERT INTO skip_tokens (code, issued_at, expires_at, created_by, creator_ip)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		token.Code,
		token.IssuedAt,
		token.ExpiresAt,
		token.CreatedBy,
		token.CreatorIP,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return skiptoken.ErrInvalidCode
		}
		return fmt.Errorf("insert skip token: %w", err)
	}
	return nil
}

// Get retrieves a token by code.
func (r *Repository) Get(ctx context.Context, code string) (*domain.SkipToken, error) {
	query := `
		SELECT code, issued_at, expires_at, consumed, consumed_by, consumed_at, created_by, creator_ip
		FROM skip_tokens
		WHERE code = $1
	`
	var token domain.SkipToken
	err := r.db.QueryRow(ctx, query, code).Scan(
		&token.Code,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Consumed,
		&token.ConsumedBy,
		&token.ConsumedAt,
		&token.CreatedBy,
		&token.CreatorIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, skiptoken.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get skip token: %w", err)
	}
	return &token, nil
}

// Consume atomically redeems a token. The row is locked for the duration of
// the transaction so two concurrent redemptions cannot both succeed.
func (r *Repository) Consume(ctx context.Context, code string, clientID domain.ClientID, now time.Time) (*domain.SkipToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		SELECT code, issued_at, expires_at, consumed, consumed_by, consumed_at, created_by, creator_ip
		FROM skip_tokens
		WHERE code = $1
		FOR UPDATE
	`
	var token domain.SkipToken
	err = tx.QueryRow(ctx, query, code).Scan(
		&token.Code,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.Consumed,
		&token.ConsumedBy,
		&token.ConsumedAt,
		&token.CreatedBy,
		&token.CreatorIP,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, skiptoken.ErrTokenNotFound
		}
		return nil, fmt.Errorf("lock skip token: %w", err)
	}

	if token.Consumed {
		return nil, skiptoken.ErrTokenConsumed
	}
	if !now.Before(token.ExpiresAt) {
		return nil, skiptoken.ErrTokenExpired
	}

	update := `
		UPDATE skip_tokens
		SET consumed = TRUE, consumed_by = $2, consumed_at = $3
		WHERE code = $1
	`
	if _, err := tx.Exec(ctx, update, code, clientID, now); err != nil {
		return nil, fmt.Errorf("mark skip token consumed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	token.Consumed = true
	token.ConsumedBy = &clientID
	token.ConsumedAt = &now
	return &token, nil
}

// DeleteExpired removes tokens whose expiry is before the given time.
func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM skip_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
