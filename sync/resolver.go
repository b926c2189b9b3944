// ABOUTME: Product resolution and variation-to-parent collapsing
// ABOUTME: Canonicalizes product URLs, inherits parent images, groups by identity
package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/couponpress/woosync/woo"
)

// ResolvedProduct is a product with its canonical identity established:
// variations point at their parent's permalink and inherit the parent's
// images when they have none of their own.
type ResolvedProduct struct {
	Product      *woo.Product
	CanonicalURL string
	IsVariation  bool
}

// GroupKey is the identity used to collapse multiple Woo product ids that
// are variations of the same parent into one coupon entry.
func (r *ResolvedProduct) GroupKey() string {
	if r.CanonicalURL != "" {
		return r.CanonicalURL
	}
	return fmt.Sprintf("product-%d", r.Product.ID)
}

// Resolve fetches full product detail and establishes canonical identity.
// A 404 on the product itself is a soft skip reported as (nil, nil). A 404
// on the parent leaves the variation's own fields in place.
func Resolve(ctx context.Context, client *woo.Client, productID int64) (*ResolvedProduct, error) {
	product, err := client.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, woo.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}

	resolved := &ResolvedProduct{
		Product:      product,
		CanonicalURL: product.Permalink,
		IsVariation:  product.ParentID > 0,
	}

	if product.ParentID > 0 {
		parent, err := client.GetProduct(ctx, product.ParentID)
		if err != nil && !errors.Is(err, woo.ErrNotFound) {
			return nil, fmt.Errorf("fetch parent %d of product %d: %w", product.ParentID, productID, err)
		}
		if parent != nil {
			resolved.CanonicalURL = parent.Permalink
			if len(product.Images) == 0 {
				product.Images = parent.Images
			}
		}
	}

	return resolved, nil
}

// GroupByIdentity collapses resolved products onto their group keys. When
// two entries compete for a key, a parent record beats a variation record,
// and a record with a URL beats one without.
func GroupByIdentity(products []*ResolvedProduct) map[string]*ResolvedProduct {
	groups := make(map[string]*ResolvedProduct, len(products))
	for _, p := range products {
		key := p.GroupKey()
		existing, ok := groups[key]
		if !ok || wins(p, existing) {
			groups[key] = p
		}
	}
	return groups
}

func wins(candidate, existing *ResolvedProduct) bool {
	if !candidate.IsVariation && existing.IsVariation {
		return true
	}
	if candidate.IsVariation && !existing.IsVariation {
		return false
	}
	return candidate.CanonicalURL != "" && existing.CanonicalURL == ""
}

// ChooseRepresentative picks the product that drives image and pricing
// display for a storewide coupon: a featured on-sale product first, else
// any on-sale product, else nil (the caller falls back to the store logo).
func ChooseRepresentative(products []woo.Product) *woo.Product {
	for i := range products {
		if products[i].Featured && products[i].OnSale {
			return &products[i]
		}
	}
	for i := range products {
		if products[i].OnSale {
			return &products[i]
		}
	}
	return nil
}
