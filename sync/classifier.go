// ABOUTME: Coupon compatibility classification
// ABOUTME: Assigns each remote coupon to multi-product, all-products, or category-only
package sync

import "github.com/couponpress/woosync/woo"

// CouponKind is the compatibility class of a remote coupon.
type CouponKind string

const (
	// KindMultiProduct targets specific product ids.
	KindMultiProduct CouponKind = "multi_product"
	// KindAllProducts applies storewide with no restriction.
	KindAllProducts CouponKind = "all_products"
	// KindCategoryOnly is restricted to categories and cannot be mapped to
	// a specific product deterministically.
	KindCategoryOnly CouponKind = "category_only"
)

// Classification is the result of classifying one coupon.
type Classification struct {
	Kind       CouponKind
	Compatible bool
	Reason     string
}

// Classify assigns a coupon to exactly one compatibility class. Pure; no
// I/O.
func Classify(coupon *woo.Coupon) Classification {
	if len(coupon.ProductIDs) > 0 {
		return Classification{Kind: KindMultiProduct, Compatible: true}
	}
	if len(coupon.ProductCategories) == 0 {
		return Classification{Kind: KindAllProducts, Compatible: true}
	}
	return Classification{
		Kind:       KindCategoryOnly,
		Compatible: false,
		Reason:     "category-restricted coupon cannot be mapped to a specific product",
	}
}
