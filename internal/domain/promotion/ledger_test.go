package promotion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func activeOffer() *PromotionalOffer {
	return &PromotionalOffer{
		Code:         "SUMMER20",
		Type:         DiscountTypePercentage,
		Value:        20,
		ApplicableTo: []ServiceType{ServicePlayerProfile},
		StartDate:    ledgerNow.Add(-24 * time.Hour),
		EndDate:      ledgerNow.Add(24 * time.Hour),
		UsageLimit:   UsageLimit{PerUser: 1},
		IsActive:     true,
		Status:       OfferStatusActive,
	}
}

func sumCounts(o *PromotionalOffer) int {
	total := 0
	for _, r := range o.CurrentUsage.ByUsers {
		total += r.Count
	}
	return total
}

func TestIsCurrentlyValid(t *testing.T) {
	t.Run("active inside window", func(t *testing.T) {
		assert.True(t, activeOffer().IsCurrentlyValid(ledgerNow))
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		o := activeOffer()
		assert.True(t, o.IsCurrentlyValid(o.StartDate))
		assert.True(t, o.IsCurrentlyValid(o.EndDate))
		assert.False(t, o.IsCurrentlyValid(o.EndDate.Add(time.Nanosecond)))
		assert.False(t, o.IsCurrentlyValid(o.StartDate.Add(-time.Nanosecond)))
	})

	t.Run("inactive flag", func(t *testing.T) {
		o := activeOffer()
		o.IsActive = false
		assert.False(t, o.IsCurrentlyValid(ledgerNow))
		assert.Equal(t, ReasonNotActive, o.InvalidReason(ledgerNow))
	})

	t.Run("pending status", func(t *testing.T) {
		o := activeOffer()
		o.Status = OfferStatusPending
		assert.False(t, o.IsCurrentlyValid(ledgerNow))
	})

	t.Run("global cap reached", func(t *testing.T) {
		o := activeOffer()
		o.UsageLimit.Total = ptr(2)
		o.CurrentUsage.Total = 2
		assert.False(t, o.IsCurrentlyValid(ledgerNow))
		assert.Equal(t, ReasonUsageExhausted, o.InvalidReason(ledgerNow))
	})

	t.Run("nil total is unlimited", func(t *testing.T) {
		o := activeOffer()
		o.CurrentUsage.Total = 1_000_000
		assert.True(t, o.IsCurrentlyValid(ledgerNow))
	})
}

func TestInvalidReason_Window(t *testing.T) {
	o := activeOffer()

	assert.Empty(t, o.InvalidReason(ledgerNow))
	assert.Equal(t, ReasonNotStarted, o.InvalidReason(o.StartDate.Add(-time.Minute)))
	assert.Equal(t, ReasonEnded, o.InvalidReason(o.EndDate.Add(time.Minute)))
}

func TestCanBeUsedBy_PerUserCap(t *testing.T) {
	o := activeOffer()
	require.True(t, o.CanBeUsedBy(7, ledgerNow))

	o.RecordUsage(7, ledgerNow)

	assert.False(t, o.CanBeUsedBy(7, ledgerNow), "per-user limit of 1 is spent")
	assert.True(t, o.CanBeUsedBy(8, ledgerNow), "other users are unaffected")
}

func TestRecordUsage_KeepsTotalEqualToSum(t *testing.T) {
	o := activeOffer()
	o.UsageLimit.PerUser = 5

	o.RecordUsage(1, ledgerNow)
	o.RecordUsage(2, ledgerNow.Add(time.Minute))
	o.RecordUsage(1, ledgerNow.Add(2*time.Minute))

	assert.Equal(t, 3, o.CurrentUsage.Total)
	assert.Equal(t, o.CurrentUsage.Total, sumCounts(o))
	require.Len(t, o.CurrentUsage.ByUsers, 2)

	rec := o.UsageFor(1)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, ledgerNow.Add(2*time.Minute), rec.LastUsed)
	assert.Nil(t, o.UsageFor(99))
}

func TestRecordUsage_ExhaustionExpiresOffer(t *testing.T) {
	o := activeOffer()
	o.UsageLimit.Total = ptr(1)

	o.RecordUsage(1, ledgerNow)

	assert.Equal(t, OfferStatusExpired, o.Status)
	assert.False(t, o.IsCurrentlyValid(ledgerNow))
	assert.Equal(t, ReasonUsageExhausted, o.InvalidReason(ledgerNow))
}

func TestRecordUsage_BelowCapStaysActive(t *testing.T) {
	o := activeOffer()
	o.UsageLimit.Total = ptr(3)

	o.RecordUsage(1, ledgerNow)

	assert.Equal(t, OfferStatusActive, o.Status)
}
