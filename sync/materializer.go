// ABOUTME: Idempotent materialization of coupon and deal records
// ABOUTME: Builds dedup keys and drives last-write-wins upserts into local storage
package sync

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/woo"
)

// skipNoIdentifier is the reason recorded when a multi-product coupon
// resolved no usable product identity. Materializing without one would
// violate the store's uniqueness rule with an ambiguous key.
const skipNoIdentifier = "no product identifier available"

// CouponEntry is one (coupon, product) pairing ready to persist. Product
// and Snapshot are nil for storewide coupons with no representative.
type CouponEntry struct {
	Coupon   *woo.Coupon
	Kind     CouponKind
	Product  *ResolvedProduct
	Price    PriceResult
	Snapshot *models.VariationSnapshot
}

// Materializer upserts pipeline output for one store.
type Materializer struct {
	db      *sql.DB
	storeID uuid.UUID
}

func NewMaterializer(database *sql.DB, storeID uuid.UUID) *Materializer {
	return &Materializer{db: database, storeID: storeID}
}

// dedupKey walks the key ladder: canonical product URL, then Woo product
// id, then the synthetic all-products marker. An empty key with a reason
// means the entry must be skipped.
func dedupKey(entry *CouponEntry) (string, string) {
	if entry.Product != nil {
		if entry.Product.CanonicalURL != "" {
			return entry.Product.CanonicalURL, ""
		}
		return strconv.FormatInt(entry.Product.Product.ID, 10), ""
	}
	if entry.Kind == KindAllProducts {
		return models.AllProductsMarker(entry.Coupon.Code), ""
	}
	return "", skipNoIdentifier
}

// MaterializeCoupon upserts one coupon entry. A non-empty skip reason
// means nothing was written.
func (m *Materializer) MaterializeCoupon(entry *CouponEntry) (string, error) {
	key, skipReason := dedupKey(entry)
	if skipReason != "" {
		return skipReason, nil
	}

	record := &models.CouponRecord{
		StoreID:         m.storeID,
		Code:            entry.Coupon.Code,
		DedupKey:        key,
		Title:           entry.Coupon.Code,
		Description:     entry.Coupon.Description,
		DiscountType:    entry.Coupon.DiscountType,
		DiscountAmount:  woo.ParsePrice(entry.Coupon.Amount),
		OriginalPrice:   entry.Price.Original,
		DiscountedPrice: entry.Price.Discounted,
		Variations:      entry.Snapshot,
		ExpiresAt:       parseExpiry(entry.Coupon.DateExpires),
		IsActive:        true,
	}

	if entry.Product != nil {
		product := entry.Product.Product
		record.Title = product.Name
		record.ProductURL = entry.Product.CanonicalURL
		record.WooProductID = product.ID
		for _, img := range product.Images {
			record.ImageURLs = append(record.ImageURLs, img.Src)
		}
		for _, tag := range product.Tags {
			record.Tags = append(record.Tags, tag.Name)
		}
	}

	if err := db.UpsertCoupon(m.db, record); err != nil {
		return "", err
	}
	return "", nil
}

// MaterializeDeal upserts one on-sale product as a deal record, keyed by
// (store, product name).
func (m *Materializer) MaterializeDeal(product *woo.Product, categoryID int64, price PriceResult, snapshot *models.VariationSnapshot) (string, error) {
	if product.Name == "" {
		return "product has no name", nil
	}

	record := &models.DealRecord{
		StoreID:         m.storeID,
		ProductName:     product.Name,
		ProductURL:      product.Permalink,
		WooProductID:    product.ID,
		CategoryID:      categoryID,
		OriginalPrice:   price.Original,
		DiscountedPrice: price.Discounted,
		Variations:      snapshot,
		IsActive:        true,
	}
	for _, img := range product.Images {
		record.ImageURLs = append(record.ImageURLs, img.Src)
	}
	for _, tag := range product.Tags {
		record.Tags = append(record.Tags, tag.Name)
	}

	if err := db.UpsertDeal(m.db, record); err != nil {
		return "", err
	}
	return "", nil
}

// parseExpiry handles the merchant API's local-time expiry format.
func parseExpiry(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		return nil
	}
	return &t
}
