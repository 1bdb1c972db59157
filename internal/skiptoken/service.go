// Package skiptoken issues and redeems single-use queue bypass codes.
package skiptoken

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/sevler/gatehouse/internal/domain"
	"github.com/sevler/gatehouse/internal/pkg/ctxlog"
)

// codeAlphabet excludes characters that are easy to confuse when read
// aloud or typed (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of generated token codes.
const CodeLength = 8

var codePattern = regexp.MustCompile(`^[A-Z2-9]{4,32}$`)

// Dispatcher connects a client to a target immediately, bypassing the queue.
type Dispatcher interface {
	DispatchNow(ctx context.Context, id domain.ClientID) error
}

// Service provides skip token issuance, verification and redemption.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	now        func() time.Time
}

// NewService creates a new skip token service. The dispatcher is optional:
// without one, consuming a token only marks it used.
func NewService(repo Repository, dispatcher Dispatcher) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Create issues a new token with a random code valid for the given duration.
func (s *Service) Create(ctx context.Context, ttl time.Duration, createdBy, creatorIP string) (*domain.SkipToken, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate token code: %w", err)
	}

	now := s.now()
	token := &domain.SkipToken{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		CreatedBy: createdBy,
		CreatorIP: creatorIP,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store skip token: %w", err)
	}
	return token, nil
}

// Import registers an externally chosen code. Codes are normalized to upper
// case before storage.
func (s *Service) Import(ctx context.Context, code string, expiresAt time.Time, createdBy string) (*domain.SkipToken, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidCode
	}

	token := &domain.SkipToken{
		Code:      code,
		IssuedAt:  s.now(),
		ExpiresAt: expiresAt,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store skip token: %w", err)
	}
	return token, nil
}

// Verify reports whether the code identifies a usable token without
// consuming it.
func (s *Service) Verify(ctx context.Context, code string) (*domain.SkipToken, error) {
	token, err := s.repo.Get(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if token.Consumed {
		return nil, ErrTokenConsumed
	}
	if !s.now().Before(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return token, nil
}

// Consume redeems the token for the given client and, when a dispatcher is
// configured, connects the client immediately. Dispatch failure does not
// roll the token back: the client keeps its queue spot and the token is
// spent, which matches the single-use guarantee.
func (s *Service) Consume(ctx context.Context, code string, clientID domain.ClientID) (*domain.SkipToken, error) {
	token, err := s.repo.Consume(ctx, strings.ToUpper(strings.TrimSpace(code)), clientID, s.now())
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.DispatchNow(ctx, clientID); err != nil {
			ctxlog.FromContext(ctx).Warn("immediate dispatch after token redemption failed",
				"client_id", clientID,
				"code", token.Code,
				"error", err,
			)
		}
	}
	return token, nil
}

// PurgeExpired removes tokens past their expiry and returns how many were
// deleted.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired tokens: %w", err)
	}
	return removed, nil
}

func generateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
