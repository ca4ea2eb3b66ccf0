// internal/domain/promotion/dto.go
package promotion

import "time"

type CreateOfferRequest struct {
	Code        string `json:"code" binding:"required,max=50"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`

	// Discount
	Type            DiscountType `json:"type" binding:"required"`
	Value           float64      `json:"value" binding:"min=0"`
	MaxDiscount     *float64     `json:"max_discount" binding:"omitempty,min=0"`
	MinimumPurchase float64      `json:"minimum_purchase" binding:"min=0"`

	ApplicableTo []ServiceType `json:"applicable_to" binding:"required,min=1"`

	// Validity
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`

	// Usage limits
	PerUserLimit int  `json:"per_user_limit" binding:"omitempty,min=1"`
	TotalLimit   *int `json:"total_limit" binding:"omitempty,min=1"`

	// Pending offers are created inactive and must be activated explicitly.
	Pending bool `json:"pending"`
}

type UpdateOfferRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`

	Value           *float64 `json:"value" binding:"omitempty,min=0"`
	MaxDiscount     *float64 `json:"max_discount" binding:"omitempty,min=0"`
	MinimumPurchase *float64 `json:"minimum_purchase" binding:"omitempty,min=0"`

	ApplicableTo []ServiceType `json:"applicable_to"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`

	PerUserLimit *int `json:"per_user_limit" binding:"omitempty,min=1"`
	TotalLimit   *int `json:"total_limit" binding:"omitempty,min=1"`
}

type OfferListFilters struct {
	Status    *OfferStatus  `form:"status"`
	Type      *DiscountType `form:"type"`
	Current   *bool         `form:"current"` // currently inside the validity window
	Search    string        `form:"search"`
	Page      int           `form:"page"`
	PageSize  int           `form:"page_size"`
	SortBy    string        `form:"sort_by"` // created_at, start_date, end_date, code
	SortOrder string        `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type OfferListResponse struct {
	Offers     []PromotionalOffer `json:"offers"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type ValidateCodeRequest struct {
	Code        string      `json:"code" binding:"required"`
	ServiceType ServiceType `json:"service_type" binding:"required"`
	Price       float64     `json:"price" binding:"min=0"`
}

// ValidationResult is returned for both validate and use. A failed check is not
// an error: Valid is false and Reason carries one of the predefined messages.
type ValidationResult struct {
	Valid           bool              `json:"valid"`
	Reason          string            `json:"reason,omitempty"`
	Offer           *PromotionalOffer `json:"offer,omitempty"`
	OriginalPrice   float64           `json:"original_price"`
	DiscountedPrice float64           `json:"discounted_price"`
	Discount        float64           `json:"discount"`
}
