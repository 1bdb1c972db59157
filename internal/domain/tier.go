package domain

// Tier is the priority class a waiting client is assigned to. Tiers are
// ordered by priority intent (Premium highest, Softban lowest); the actual
// advancement order is decided by the dequeue policy.
type Tier int

// Priority tiers, highest first.
const (
	TierPremium Tier = iota
	TierVip
	TierDefault
	TierSoftban
)

// Tiers lists all tiers in priority order.
var Tiers = []Tier{TierPremium, TierVip, TierDefault, TierSoftban}

func (t Tier) String() string {
	switch t {
	case TierPremium:
		return "premium"
	case TierVip:
		return "vip"
	case TierDefault:
		return "default"
	case TierSoftban:
		return "softban"
	default:
		return "unknown"
	}
}
