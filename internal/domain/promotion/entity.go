// internal/domain/promotion/entity.go
package promotion

import (
	"time"
)

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	DiscountTypeFree        DiscountType = "free"
)

type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusActive   OfferStatus = "active"
	OfferStatusInactive OfferStatus = "inactive"
	OfferStatusExpired  OfferStatus = "expired"
)

// ServiceType tags the paid service an offer may discount.
type ServiceType string

const (
	ServicePlayerProfile   ServiceType = "player_profile"
	ServiceCoachProfile    ServiceType = "coach_profile"
	ServiceAdvertisement   ServiceType = "advertisement"
	ServicePlayerPromotion ServiceType = "player_promotion"
	ServiceCoachPromotion  ServiceType = "coach_promotion"
	ServiceSubscription    ServiceType = "subscription"
)

func (s ServiceType) IsKnown() bool {
	switch s {
	case ServicePlayerProfile, ServiceCoachProfile, ServiceAdvertisement,
		ServicePlayerPromotion, ServiceCoachPromotion, ServiceSubscription:
		return true
	}
	return false
}

// UsageLimit caps redemptions. A nil Total means unlimited.
type UsageLimit struct {
	PerUser int  `json:"per_user"`
	Total   *int `json:"total,omitempty"`
}

type UsageRecord struct {
	UserID   int64     `json:"user_id"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// CurrentUsage is the redemption ledger. Total always equals the sum of ByUsers counts.
type CurrentUsage struct {
	Total   int           `json:"total"`
	ByUsers []UsageRecord `json:"by_users,omitempty"`
}

type PromotionalOffer struct {
	ID          int64  `json:"id" db:"id"`
	Code        string `json:"code" db:"code"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// Discount
	Type            DiscountType `json:"type" db:"discount_type"`
	Value           float64      `json:"value" db:"discount_value"`
	MaxDiscount     *float64     `json:"max_discount,omitempty" db:"max_discount"`
	MinimumPurchase float64      `json:"minimum_purchase" db:"minimum_purchase"`

	// Targeting
	ApplicableTo []ServiceType `json:"applicable_to" db:"applicable_to"`

	// Validity
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	// Usage
	UsageLimit   UsageLimit   `json:"usage_limit"`
	CurrentUsage CurrentUsage `json:"current_usage"`

	IsActive bool        `json:"is_active" db:"is_active"`
	Status   OfferStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppliesTo reports whether the offer may discount the given service.
func (o *PromotionalOffer) AppliesTo(service ServiceType) bool {
	for _, s := range o.ApplicableTo {
		if s == service {
			return true
		}
	}
	return false
}

type OfferStats struct {
	TotalOffers   int64 `json:"total_offers"`
	ActiveOffers  int64 `json:"active_offers"`
	ExpiredOffers int64 `json:"expired_offers"`
	TotalUses     int64 `json:"total_uses"`
	DistinctUsers int64 `json:"distinct_users"`
}
