// ABOUTME: Discount price computation
// ABOUTME: Derives original and discounted prices from base prices and coupon terms
package sync

import (
	"math"

	"github.com/couponpress/woosync/models"
)

// PriceResult carries the denormalized pricing for one materialized record.
type PriceResult struct {
	Original   float64
	Discounted float64
}

// BasePrices are the raw price fields of a product or its chosen variation.
type BasePrices struct {
	Regular float64
	Sale    float64
	Price   float64
}

// ComputePrice derives the displayed original price and the realized
// discounted price. Pure; no I/O.
//
// The original price falls back regular → sale → generic price. The current
// price is the sale price when it is a genuine markdown, else the regular
// price. Unknown discount types (free shipping only, for instance) leave the
// current price untouched.
func ComputePrice(base BasePrices, discountType string, discountValue float64) PriceResult {
	original := base.Regular
	if original <= 0 {
		original = base.Sale
	}
	if original <= 0 {
		original = base.Price
	}

	current := base.Regular
	if base.Sale > 0 && base.Sale < base.Regular {
		current = base.Sale
	}

	var discounted float64
	switch discountType {
	case models.DiscountPercent:
		discounted = current * (1 - discountValue/100)
	case models.DiscountFixedCart, models.DiscountFixedProduct:
		discounted = current - discountValue
	default:
		discounted = current
	}

	if discounted < 0 {
		discounted = 0
	}
	return PriceResult{
		Original:   round2(original),
		Discounted: round2(discounted),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
