package promotion

import "time"

// User-facing validation failures. These are the only strings a failed
// validation may return.
const (
	ReasonCodeNotFound      = "Invalid promotional code"
	ReasonNotActive         = "This promotional code is not currently active"
	ReasonNotStarted        = "This promotional code is not valid yet"
	ReasonEnded             = "This promotional code has expired"
	ReasonUsageExhausted    = "This promotional code has reached its usage limit"
	ReasonPerUserLimit      = "You have already used this promotional code the maximum number of times"
	ReasonNotApplicable     = "This promotional code is not applicable to the selected service"
	ReasonMinimumPurchase   = "The purchase amount does not meet the minimum required for this promotional code"
	ReasonValidationSuccess = "Promotional code is valid"
)

// InvalidReason explains why IsCurrentlyValid is false, or returns "" when the
// offer is valid at now.
func (o *PromotionalOffer) InvalidReason(now time.Time) string {
	switch {
	case !o.IsActive || o.Status == OfferStatusPending || o.Status == OfferStatusInactive:
		return ReasonNotActive
	case o.Status == OfferStatusExpired && o.IsExhausted():
		return ReasonUsageExhausted
	case o.Status != OfferStatusActive:
		return ReasonNotActive
	case now.Before(o.StartDate):
		return ReasonNotStarted
	case now.After(o.EndDate):
		return ReasonEnded
	case o.IsExhausted():
		return ReasonUsageExhausted
	}
	return ""
}
