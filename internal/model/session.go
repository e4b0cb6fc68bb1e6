package model

import (
	"time"
)

// Session is one contiguous voice-channel presence interval for a user.
// LeftAt is nil while the user is still connected; a session is immutable
// once closed. At most one open session exists per user at any time.
type Session struct {
	ID       int64      `db:"id" json:"id"`
	UserID   uint64     `db:"user_id" json:"userId"`
	JoinedAt time.Time  `db:"joined_at" json:"joinedAt"`
	LeftAt   *time.Time `db:"left_at" json:"leftAt,omitempty"`
}

func (s Session) Closed() bool {
	return s.LeftAt != nil
}

// UserStat is the per-user read model derived from closed sessions.
// Recomputed on demand, never persisted.
type UserStat struct {
	UserID          uint64        `json:"userId"`
	GenkaiPoint     uint64        `json:"genkaiPoint"`
	TotalVCDuration time.Duration `json:"totalVcDuration"`
}
