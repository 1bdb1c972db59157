// Package postgres provides PostgreSQL implementation of the directory repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sevler/gatehouse/internal/directory"
	"github.com/sevler/gatehouse/internal/domain"
)

// Repository implements the directory.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// IsMember reports whether the client is a member of the group.
func (r *Repository) IsMember(ctx context.Context, group string, clientID domain.ClientID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM directory_group_members
			WHERE group_name = $1 AND client_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, group, clientID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return exists, nil
}

// AddMember inserts a membership record. Duplicate inserts are ignored.
func (r *Repository) AddMember(ctx context.Context, group string, clientID domain.ClientID) error {
	query := `
		INSERT INTO directory_group_members (group_name, client_id)
		VALUES ($1, $2)
		ON CONFLICT (group_name, client_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, group, clientID); err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership record.
func (r *Repository) RemoveMember(ctx context.Context, group string, clientID domain.ClientID) error {
	query := `
		DELETE FROM directory_group_members
		WHERE group_name = $1 AND client_id = $2
	`
	tag, err := r.db.Exec(ctx, query, group, clientID)
	if err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrMemberNotFound
	}
	return nil
}

// ListMembers returns all members of a group ordered by when they were added.
func (r *Repository) ListMembers(ctx context.Context, group string) ([]domain.GroupMember, error) {
	query := `
		SELECT group_name, client_id, added_at
		FROM directory_group_members
		WHERE group_name = $1
		ORDER BY added_at
	`
	rows, err := r.db.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.GroupMember, 0)
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.Group, &m.ClientID, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return members, nil
}
