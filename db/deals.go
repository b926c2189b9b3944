// ABOUTME: Deal record database operations
// ABOUTME: Last-write-wins upserts keyed by (store, product name) plus deactivation
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couponpress/woosync/models"
)

// UpsertDeal inserts or fully overwrites the deal record matching
// (store_id, product_name).
func UpsertDeal(db *sql.DB, deal *models.DealRecord) error {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	now := time.Now()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	imageURLs, err := marshalJSON(deal.ImageURLs)
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}
	tags, err := marshalJSON(deal.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	variations, err := marshalJSON(deal.Variations)
	if err != nil {
		return fmt.Errorf("failed to encode variations: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO deals (id, store_id, product_name, product_url, woo_product_id, category_id,
			original_price, discounted_price, image_urls, tags, variations, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(store_id, product_name) DO UPDATE SET
			product_url = excluded.product_url,
			woo_product_id = excluded.woo_product_id,
			category_id = excluded.category_id,
			original_price = excluded.original_price,
			discounted_price = excluded.discounted_price,
			image_urls = excluded.image_urls,
			tags = excluded.tags,
			variations = excluded.variations,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, deal.ID.String(), deal.StoreID.String(), deal.ProductName, deal.ProductURL, deal.WooProductID,
		deal.CategoryID, deal.OriginalPrice, deal.DiscountedPrice,
		imageURLs, tags, variations, deal.IsActive, deal.CreatedAt, deal.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert deal: %w", err)
	}
	return nil
}

// ListDeals retrieves all deal records for a store.
func ListDeals(db *sql.DB, storeID uuid.UUID) ([]models.DealRecord, error) {
	rows, err := db.Query(`
		SELECT id, store_id, product_name, product_url, woo_product_id, category_id,
			original_price, discounted_price, image_urls, tags, variations, is_active, created_at, updated_at
		FROM deals WHERE store_id = ? ORDER BY product_name
	`, storeID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []models.DealRecord
	for rows.Next() {
		var deal models.DealRecord
		var productURL sql.NullString
		var wooProductID, categoryID sql.NullInt64
		var imageURLs, tags, variations sql.NullString

		err := rows.Scan(
			&deal.ID,
			&deal.StoreID,
			&deal.ProductName,
			&productURL,
			&wooProductID,
			&categoryID,
			&deal.OriginalPrice,
			&deal.DiscountedPrice,
			&imageURLs,
			&tags,
			&variations,
			&deal.IsActive,
			&deal.CreatedAt,
			&deal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}

		deal.ProductURL = productURL.String
		deal.WooProductID = wooProductID.Int64
		deal.CategoryID = categoryID.Int64
		if err := unmarshalJSON(imageURLs, &deal.ImageURLs); err != nil {
			return nil, fmt.Errorf("failed to decode image urls: %w", err)
		}
		if err := unmarshalJSON(tags, &deal.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
		if err := unmarshalJSON(variations, &deal.Variations); err != nil {
			return nil, fmt.Errorf("failed to decode variations: %w", err)
		}
		deals = append(deals, deal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}
	return deals, nil
}

// DeactivateDealsNotIn flags deals absent from the current on-sale fetch as
// inactive. Products whose names appear in activeNames keep their state.
func DeactivateDealsNotIn(db *sql.DB, storeID uuid.UUID, activeNames []string) (int64, error) {
	query := "UPDATE deals SET is_active = 0, updated_at = ? WHERE store_id = ? AND is_active = 1"
	args := []any{time.Now(), storeID.String()}

	if len(activeNames) > 0 {
		placeholders := strings.Repeat("?, ", len(activeNames)-1) + "?"
		query += " AND product_name NOT IN (" + placeholders + ")"
		for _, name := range activeNames {
			args = append(args, name)
		}
	}

	result, err := db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate deals: %w", err)
	}
	return result.RowsAffected()
}

// CountDeals counts a store's deal records.
func CountDeals(db *sql.DB, storeID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM deals WHERE store_id = ?", storeID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	return count, nil
}
