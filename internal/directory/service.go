// Package directory resolves group membership used to classify waiting
// clients into queue tiers.
package directory

import (
	"context"
	"fmt"

	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
)

// Service provides group membership lookups and management.
type Service struct {
	repo Repository
}

// NewService creates a new directory service. A nil repository yields a
// disabled directory where every membership check answers false.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// IsEnabled reports whether the directory has a backing store.
func (s *Service) IsEnabled() bool {
	return s != nil && s.repo != nil
}

// IsInGroup reports whether the client belongs to the named group. Lookup
// failures are logged and treated as non-membership so a directory outage
// degrades classification instead of blocking admission.
func (s *Service) IsInGroup(ctx context.Context, clientID domain.ClientID, group string) bool {
	if !s.IsEnabled() {
		return false
	}

	member, err := s.repo.IsMember(ctx, group, clientID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("group membership lookup failed",
			"client_id", clientID,
			"group", group,
			"error", err,
		)
		return false
	}
	return member
}

// AddMember adds a client to a group. Adding an existing member is a no-op.
func (s *Service) AddMember(ctx context.Context, group string, clientID domain.ClientID) error {
	if !s.IsEnabled() {
		return ErrDisabled
	}
	if err := s.repo.AddMember(ctx, group, clientID); err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember removes a client from a group.
func (s *Service) RemoveMember(ctx context.Context, group string, clientID domain.ClientID) error {
	if !s.IsEnabled() {
		return ErrDisabled
	}
	return s.repo.RemoveMember(ctx, group, clientID)
}

// ListMembers returns all members of a group.
func (s *Service) ListMembers(ctx context.Context, group string) ([]domain.GroupMember, error) {
	if !s.IsEnabled() {
		return nil, ErrDisabled
	}
	members, err := s.repo.ListMembers(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}
