// ABOUTME: Variation fetching, filtering, and default selection
// ABOUTME: Computes on-sale subsets, price ranges, and a canonical default variation
package sync

import (
	"context"

	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/woo"
)

// VariationSet is the processed variation state of one variable product.
type VariationSet struct {
	Variations    []woo.Variation
	ApplicableIDs []int64
	AllOnSale     bool
	PriceMin      float64
	PriceMax      float64
	Default       *woo.Variation
}

// ProcessVariations fetches and filters all variations of a product. A nil
// set with nil error means no viable variation survived filtering; the
// caller skips pricing and materialization for that product. When
// pagination breaks after accumulating pages, the set built from the
// fetched pages is returned together with the error so callers can record
// the failure and still price what arrived.
func ProcessVariations(ctx context.Context, client *woo.Client, productID int64) (*VariationSet, error) {
	fetched, fetchErr := woo.FetchAll(ctx, func(ctx context.Context, page int) ([]woo.Variation, error) {
		return client.ListVariations(ctx, productID, page)
	})
	if fetchErr != nil && len(fetched) == 0 {
		return nil, fetchErr
	}

	var variations []woo.Variation
	for _, v := range fetched {
		if v.Status != "" && v.Status != "publish" {
			continue
		}
		if !v.IsPurchasable() {
			continue
		}
		variations = append(variations, v)
	}
	if len(variations) == 0 {
		return nil, fetchErr
	}

	set := &VariationSet{Variations: variations}
	for i := range variations {
		if variations[i].OnSale() {
			set.ApplicableIDs = append(set.ApplicableIDs, variations[i].ID)
		}
	}
	set.AllOnSale = len(set.ApplicableIDs) == len(variations)
	set.PriceMin, set.PriceMax = priceRange(variations, set.ApplicableIDs)
	set.Default = chooseDefault(variations)
	return set, fetchErr
}

// priceRange spans the on-sale variations' effective prices when any exist,
// else all variations' regular prices.
func priceRange(variations []woo.Variation, onSaleIDs []int64) (min, max float64) {
	onSale := make(map[int64]bool, len(onSaleIDs))
	for _, id := range onSaleIDs {
		onSale[id] = true
	}

	first := true
	add := func(price float64) {
		if first {
			min, max = price, price
			first = false
			return
		}
		if price < min {
			min = price
		}
		if price > max {
			max = price
		}
	}

	for i := range variations {
		v := &variations[i]
		if len(onSaleIDs) > 0 {
			if onSale[v.ID] {
				add(v.EffectivePrice())
			}
		} else {
			add(woo.ParsePrice(v.RegularPrice))
		}
	}
	return min, max
}

// chooseDefault picks the canonical display variation: on-sale and in
// stock first, then any in-stock variation, then the first in list order.
// Callers see only variations that already passed the purchasable filter.
func chooseDefault(variations []woo.Variation) *woo.Variation {
	for i := range variations {
		if variations[i].OnSale() && variations[i].InStock() {
			return &variations[i]
		}
	}
	for i := range variations {
		if variations[i].InStock() {
			return &variations[i]
		}
	}
	return &variations[0]
}

// Snapshot converts the set into the persisted denormalized form.
func (s *VariationSet) Snapshot() *models.VariationSnapshot {
	if s == nil {
		return nil
	}

	snapshot := &models.VariationSnapshot{
		ApplicableVariationIDs: s.ApplicableIDs,
		AllVariationsOnSale:    s.AllOnSale,
		PriceMin:               s.PriceMin,
		PriceMax:               s.PriceMax,
	}
	if s.Default != nil {
		snapshot.DefaultVariationID = s.Default.ID
		snapshot.DefaultAttributes = s.Default.AttributeMap()
	}
	for i := range s.Variations {
		v := &s.Variations[i]
		summary := models.VariationSummary{
			ID:           v.ID,
			SKU:          v.SKU,
			Attributes:   v.AttributeMap(),
			RegularPrice: woo.ParsePrice(v.RegularPrice),
			SalePrice:    woo.ParsePrice(v.SalePrice),
			OnSale:       v.OnSale(),
			InStock:      v.InStock(),
		}
		if v.Image != nil {
			summary.ImageURL = v.Image.Src
		}
		snapshot.Variations = append(snapshot.Variations, summary)
	}
	return snapshot
}
