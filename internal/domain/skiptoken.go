package domain

import "time"

// SkipToken is a single-use code that lets its bearer bypass the waiting
// queue and connect immediately.
type SkipToken struct {
	Code       string     `json:"code"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Consumed   bool       `json:"consumed"`
	ConsumedBy *ClientID  `json:"consumed_by,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty"`
	CreatorIP  string     `json:"creator_ip,omitempty"`
}

// Valid reports whether the token can still be consumed at the given time.
func (t *SkipToken) Valid(now time.Time) bool {
	return !t.Consumed && now.Before(t.ExpiresAt)
}
