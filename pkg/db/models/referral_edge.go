package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralEdge links a newly joined vendor to one ancestor in its referral
// chain. Level 1 is the direct referrer. Created once at signup, immutable.
type ReferralEdge struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferrerID uuid.UUID `gorm:"column:referrer_id;type:uuid;not null;uniqueIndex:idx_referral_edges_pair"`
	ReferredID uuid.UUID `gorm:"column:referred_id;type:uuid;not null;uniqueIndex:idx_referral_edges_pair;index"`
	Level      int       `gorm:"column:level;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
