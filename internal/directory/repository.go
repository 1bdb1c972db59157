package directory

import (
	"context"

	"github.com/sevler/gatehouse/internal/domain"
)

// Repository defines the interface for group membership data operations.
type Repository interface {
	IsMember(ctx context.Context, group string, clientID domain.ClientID) (bool, error)
	AddMember(ctx context.Context, group string, clientID domain.ClientID) error
	RemoveMember(ctx context.Context, group string, clientID domain.ClientID) error
	ListMembers(ctx context.Context, group string) ([]domain.GroupMember, error)
}
