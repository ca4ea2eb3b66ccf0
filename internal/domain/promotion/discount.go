package promotion

import "math"

// ApplyDiscount returns the price after the offer's discount, never below zero.
func ApplyDiscount(o *PromotionalOffer, originalPrice float64) float64 {
	final, _ := Breakdown(o, originalPrice)
	return final
}

// Breakdown returns the final price and the discount actually granted.
func Breakdown(o *PromotionalOffer, originalPrice float64) (float64, float64) {
	if originalPrice <= 0 {
		return 0, 0
	}

	var discount float64
	switch o.Type {
	case DiscountTypePercentage:
		discount = originalPrice * (o.Value / 100)
		if o.MaxDiscount != nil {
			discount = math.Min(discount, *o.MaxDiscount)
		}
	case DiscountTypeFixedAmount:
		discount = o.Value
	case DiscountTypeFree:
		discount = originalPrice
	}

	final := math.Max(originalPrice-discount, 0)
	return final, originalPrice - final
}
