// ABOUTME: Coupon record database operations
// ABOUTME: Last-write-wins upserts keyed by (store, code, dedup key)
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/couponpress/woosync/models"
)

// UpsertCoupon inserts or fully overwrites the coupon record matching
// (store_id, code, dedup_key). The conflict resolution runs inside SQLite,
// so concurrent materialization cannot produce duplicate keys.
func UpsertCoupon(db *sql.DB, coupon *models.CouponRecord) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	now := time.Now()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	imageURLs, err := marshalJSON(coupon.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}
	tags, err := marshalJSON(coupon.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	variations, err := marshalJSON(coupon.Variations)
	if err != nil {
		return fmt.Errorf("failed to encode variations: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO coupons (id, store_id, code, dedup_key, title, description, product_url, woo_product_id,
			discount_type, discount_amount, original_price, discounted_price,
			image_urls, tags, variations, expires_at, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, code, dedup_key) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			product_url = excluded.product_url,
			woo_product_id = excluded.woo_product_id,
			discount_type = excluded.discount_type,
			discount_amount = excluded.discount_amount,
			original_price = excluded.original_price,
			discounted_price = excluded.discounted_price,
			image_urls = excluded.image_urls,
			tags = excluded.tags,
			variations = excluded.variations,
			expires_at = excluded.expires_at,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, coupon.ID.String(), coupon.StoreID.String(), coupon.Code, coupon.DedupKey, coupon.Title,
		coupon.Description, coupon.ProductURL, coupon.WooProductID,
		coupon.DiscountType, coupon.DiscountAmount, coupon.OriginalPrice, coupon.DiscountedPrice,
		imageURLs, tags, variations, coupon.ExpiresAt, coupon.IsActive, coupon.CreatedAt, coupon.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}
	return nil
}

// ListCoupons retrieves all coupon records for a store.
func ListCoupons(db *sql.DB, storeID uuid.UUID) ([]models.CouponRecord, error) {
	rows, err := db.Query(`
		SELECT id, store_id, code, dedup_key, title, description, product_url, woo_product_id,
			discount_type, discount_amount, original_price, discounted_price,
			image_urls, tags, variations, expires_at, is_active, created_at, updated_at
		FROM coupons WHERE store_id = ? ORDER BY code, dedup_key
	`, storeID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query coupons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var coupons []models.CouponRecord
	for rows.Next() {
		var coupon models.CouponRecord
		var description, productURL sql.NullString
		var wooProductID sql.NullInt64
		var imageURLs, tags, variations sql.NullString
		var expiresAt sql.NullTime

		err := rows.Scan(
			&coupon.ID,
			&coupon.StoreID,
			&coupon.Code,
			&coupon.DedupKey,
			&coupon.Title,
			&description,
			&productURL,
			&wooProductID,
			&coupon.DiscountType,
			&coupon.DiscountAmount,
			&coupon.OriginalPrice,
			&coupon.DiscountedPrice,
			&imageURLs,
			&tags,
			&variations,
			&expiresAt,
			&coupon.IsActive,
			&coupon.CreatedAt,
			&coupon.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}

		coupon.Description = description.String
		coupon.ProductURL = productURL.String
		coupon.WooProductID = wooProductID.Int64
		if expiresAt.Valid {
			coupon.ExpiresAt = &expiresAt.Time
		}
		if err := unmarshalJSON(imageURLs, &coupon.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to decode image urls: %w", err)
		}
		if err := unmarshalJSON(tags, &coupon.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		if err := unmarshalJSON(variations, &coupon.Variations); err != nil {
			return nil, fmt.Errorf("failed to decode variations: %w", err)
		}
		coupons = append(coupons, coupon)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return coupons, nil
}

// CountCoupons counts a store's coupon records.
func CountCoupons(db *sql.DB, storeID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM coupons WHERE store_id = ?", storeID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count coupons: %w", err)
	}
	return count, nil
}

func marshalJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	case *models.VariationSnapshot:
		if val == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(column sql.NullString, v any) error {
	if !column.Valid || column.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(column.String), v)
}
