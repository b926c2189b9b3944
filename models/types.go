// ABOUTME: Data models for sync entities
// ABOUTME: Defines Store, CouponRecord, DealRecord, and variation snapshot structs
package models

import (
	"time"

	"github.com/google/uuid"
)

type Store struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	BaseURL           string     `json:"base_url"`
	ConsumerKey       string     `json:"consumer_key"`
	ConsumerSecret    string     `json:"consumer_secret"`
	DefaultCategoryID *int64     `json:"default_category_id,omitempty"`
	LastSyncDate      *time.Time `json:"last_sync_date,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CouponRecord is one materialized (coupon, product) pairing for a store.
// DedupKey is the product URL, the Woo product id, or the synthetic
// all-products marker; UNIQUE(store_id, code, dedup_key) is enforced by
// the database, so repeated syncs overwrite rather than duplicate.
type CouponRecord struct {
	ID              uuid.UUID          `json:"id"`
	StoreID         uuid.UUID          `json:"store_id"`
	Code            string             `json:"code"`
	DedupKey        string             `json:"dedup_key"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	ProductURL      string             `json:"product_url,omitempty"`
	WooProductID    int64              `json:"woo_product_id,omitempty"`
	DiscountType    string             `json:"discount_type"`
	DiscountAmount  float64            `json:"discount_amount"`
	OriginalPrice   float64            `json:"original_price"`
	DiscountedPrice float64            `json:"discounted_price"`
	ImageURLs       []string           `json:"image_urls,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Variations      *VariationSnapshot `json:"variations,omitempty"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	IsActive        bool               `json:"is_active"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// DealRecord is an on-sale product with no applicable coupon, unique per
// (store, product name).
type DealRecord struct {
	ID              uuid.UUID          `json:"id"`
	StoreID         uuid.UUID          `json:"store_id"`
	ProductName     string             `json:"product_name"`
	ProductURL      string             `json:"product_url,omitempty"`
	WooProductID    int64              `json:"woo_product_id,omitempty"`
	CategoryID      int64              `json:"category_id,omitempty"`
	OriginalPrice   float64            `json:"original_price"`
	DiscountedPrice float64            `json:"discounted_price"`
	ImageURLs       []string           `json:"image_urls,omitempty"`
	Tags            []string           `json:"tags,omitempty"`
	Variations      *VariationSnapshot `json:"variations,omitempty"`
	IsActive        bool               `json:"is_active"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// VariationSnapshot is the denormalized variation state captured at sync
// time for a variable product. It holds no live reference to the remote
// system; the next sync overwrites it wholesale.
type VariationSnapshot struct {
	ApplicableVariationIDs []int64            `json:"applicable_variation_ids,omitempty"`
	AllVariationsOnSale    bool               `json:"all_variations_on_sale"`
	PriceMin               float64            `json:"price_min"`
	PriceMax               float64            `json:"price_max"`
	DefaultVariationID     int64              `json:"default_variation_id,omitempty"`
	DefaultAttributes      map[string]string  `json:"default_attributes,omitempty"`
	Variations             []VariationSummary `json:"variations,omitempty"`
}

// VariationSummary is one variation inside a VariationSnapshot.
type VariationSummary struct {
	ID           int64             `json:"id"`
	SKU          string            `json:"sku,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	RegularPrice float64           `json:"regular_price"`
	SalePrice    float64           `json:"sale_price,omitempty"`
	OnSale       bool              `json:"on_sale"`
	InStock      bool              `json:"in_stock"`
	ImageURL     string            `json:"image_url,omitempty"`
}

// Discount type constants as reported by the merchant API.
const (
	DiscountPercent      = "percent"
	DiscountFixedCart    = "fixed_cart"
	DiscountFixedProduct = "fixed_product"
)

// Sync run kinds.
const (
	RunKindCoupons = "coupons"
	RunKindDeals   = "deals"
)

// Sync run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AllProductsMarker builds the synthetic dedup key for a storewide coupon
// so the no-product case still satisfies the per-store uniqueness rule.
func AllProductsMarker(code string) string {
	return "__all_products__" + code
}
