// internal/domain/entitlement/entity.go
package entitlement

import (
	"errors"
	"time"
)

// ErrCollectionMissing is returned by a sweep store when an optional table is
// not deployed. The sweep counts it as zero affected rows.
var ErrCollectionMissing = errors.New("collection not present in this deployment")

// Grant is the paid active/visible window carried by users, players and coaches.
// IsActive and ActiveExpireAt are always set and cleared together.
type Grant struct {
	IsActive       bool       `json:"is_active" db:"is_active"`
	ActiveExpireAt *time.Time `json:"active_expire_at,omitempty" db:"active_expire_at"`
}

// Promotion is the featured-listing window. All four fields are cleared together.
type Promotion struct {
	Status    bool       `json:"status" db:"promoted_status"`
	StartDate *time.Time `json:"start_date,omitempty" db:"promoted_start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"promoted_end_date"`
	Type      *string    `json:"type,omitempty" db:"promoted_type"`
}

type User struct {
	ID int64 `json:"id" db:"id"`
	Grant
}

type Player struct {
	ID       int64 `json:"id" db:"id"`
	UserID   int64 `json:"user_id" db:"user_id"`
	IsListed bool  `json:"is_listed" db:"is_listed"`
	Grant
	IsPromoted Promotion `json:"is_promoted"`
}

type Coach struct {
	ID     int64 `json:"id" db:"id"`
	UserID int64 `json:"user_id" db:"user_id"`
	Grant
	IsPromoted Promotion `json:"is_promoted"`
}

type Entitlement struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Active    bool      `json:"active" db:"active"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// GrantExpired reports whether the sweep should revoke g at now.
func GrantExpired(g Grant, now time.Time) bool {
	return g.IsActive && g.ActiveExpireAt != nil && !g.ActiveExpireAt.After(now)
}

// PromotionExpired reports whether the sweep should clear p at now.
func PromotionExpired(p Promotion, now time.Time) bool {
	return p.Status && p.EndDate != nil && !p.EndDate.After(now)
}

// SweepResult counts rows flipped per collection in one sweep run.
type SweepResult struct {
	RunID            string    `json:"run_id"`
	Now              time.Time `json:"now"`
	Users            int64     `json:"users"`
	Players          int64     `json:"players"`
	PlayerPromotions int64     `json:"player_promotions"`
	Coaches          int64     `json:"coaches"`
	CoachPromotions  int64     `json:"coach_promotions"`
	Entitlements     int64     `json:"entitlements"`
}

func (r *SweepResult) Total() int64 {
	return r.Users + r.Players + r.PlayerPromotions + r.Coaches + r.CoachPromotions + r.Entitlements
}
