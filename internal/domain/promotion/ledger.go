package promotion

import "time"

// IsCurrentlyValid checks the activation flags, the validity window (inclusive on
// both ends) and the global usage cap.
func (o *PromotionalOffer) IsCurrentlyValid(now time.Time) bool {
	return o.IsActive &&
		o.Status == OfferStatusActive &&
		o.withinWindow(now) &&
		!o.IsExhausted()
}

func (o *PromotionalOffer) withinWindow(now time.Time) bool {
	return !now.Before(o.StartDate) && !now.After(o.EndDate)
}

// IsExhausted reports whether the global usage cap has been reached.
func (o *PromotionalOffer) IsExhausted() bool {
	return o.UsageLimit.Total != nil && o.CurrentUsage.Total >= *o.UsageLimit.Total
}

// UsageFor returns the ledger entry for userID, or nil if the user never redeemed.
func (o *PromotionalOffer) UsageFor(userID int64) *UsageRecord {
	for i := range o.CurrentUsage.ByUsers {
		if o.CurrentUsage.ByUsers[i].UserID == userID {
			return &o.CurrentUsage.ByUsers[i]
		}
	}
	return nil
}

// CanBeUsedBy reports whether userID may redeem the offer right now.
func (o *PromotionalOffer) CanBeUsedBy(userID int64, now time.Time) bool {
	if !o.IsCurrentlyValid(now) {
		return false
	}
	return !o.perUserLimitReached(userID)
}

func (o *PromotionalOffer) perUserLimitReached(userID int64) bool {
	rec := o.UsageFor(userID)
	return rec != nil && rec.Count >= o.UsageLimit.PerUser
}

// RecordUsage adds exactly one redemption for userID. Reaching the global cap
// moves the offer to expired; nothing here ever moves it back.
func (o *PromotionalOffer) RecordUsage(userID int64, now time.Time) {
	if rec := o.UsageFor(userID); rec != nil {
		rec.Count++
		rec.LastUsed = now
	} else {
		o.CurrentUsage.ByUsers = append(o.CurrentUsage.ByUsers, UsageRecord{
			UserID:   userID,
			Count:    1,
			LastUsed: now,
		})
	}

	o.CurrentUsage.Total++
	if o.IsExhausted() {
		o.Status = OfferStatusExpired
	}
	o.UpdatedAt = now
}
