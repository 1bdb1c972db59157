package domain

import "time"

// Default directory group names used to classify waiting clients. The
// configuration may point at different groups.
const (
	GroupPremium = "group.premium"
	GroupVip     = "group.vip"
	GroupSoftban = "group.softban"
)

// GroupMember represents a single membership record in a directory group.
type GroupMember struct {
	Group    string    `json:"group"`
	ClientID ClientID  `json:"client_id"`
	AddedAt  time.Time `json:"added_at"`
}
