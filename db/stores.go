// ABOUTME: Store registry database operations
// ABOUTME: Handles store credentials, default category, and last sync timestamp
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/couponpress/woosync/models"
)

// CreateStore inserts a new store.
func CreateStore(db *sql.DB, store *models.Store) error {
	store.ID = uuid.New()
	now := time.Now()
	store.CreatedAt = now
	store.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO stores (id, name, base_url, consumer_key, consumer_secret, default_category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, store.ID.String(), store.Name, store.BaseURL, store.ConsumerKey, store.ConsumerSecret,
		store.DefaultCategoryID, store.CreatedAt, store.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// GetStoreByName retrieves a store by its name. Returns nil when absent.
func GetStoreByName(db *sql.DB, name string) (*models.Store, error) {
	return scanStore(db.QueryRow(`
		SELECT id, name, base_url, consumer_key, consumer_secret, default_category_id, last_sync_date, created_at, updated_at
		FROM stores WHERE name = ?
	`, name))
}

// GetStore retrieves a store by id. Returns nil when absent.
func GetStore(db *sql.DB, id uuid.UUID) (*models.Store, error) {
	return scanStore(db.QueryRow(`
		SELECT id, name, base_url, consumer_key, consumer_secret, default_category_id, last_sync_date, created_at, updated_at
		FROM stores WHERE id = ?
	`, id.String()))
}

func scanStore(row *sql.Row) (*models.Store, error) {
	store := &models.Store{}
	var defaultCategory sql.NullInt64
	var lastSync sql.NullTime

	err := row.Scan(
		&store.ID,
		&store.Name,
		&store.BaseURL,
		&store.ConsumerKey,
		&store.ConsumerSecret,
		&defaultCategory,
		&lastSync,
		&store.CreatedAt,
		&store.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	if defaultCategory.Valid {
		store.DefaultCategoryID = &defaultCategory.Int64
	}
	if lastSync.Valid {
		store.LastSyncDate = &lastSync.Time
	}
	return store, nil
}

// ListStores retrieves all stores ordered by name.
func ListStores(db *sql.DB) ([]models.Store, error) {
	rows, err := db.Query(`
		SELECT id, name, base_url, consumer_key, consumer_secret, default_category_id, last_sync_date, created_at, updated_at
		FROM stores ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stores []models.Store
	for rows.Next() {
		var store models.Store
		var defaultCategory sql.NullInt64
		var lastSync sql.NullTime

		err := rows.Scan(
			&store.ID,
			&store.Name,
			&store.BaseURL,
			&store.ConsumerKey,
			&store.ConsumerSecret,
			&defaultCategory,
			&lastSync,
			&store.CreatedAt,
			&store.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}

		if defaultCategory.Valid {
			store.DefaultCategoryID = &defaultCategory.Int64
		}
		if lastSync.Valid {
			store.LastSyncDate = &lastSync.Time
		}
		stores = append(stores, store)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stores: %w", err)
	}
	return stores, nil
}

// DeleteStore removes a store and its materialized records.
func DeleteStore(db *sql.DB, id uuid.UUID) error {
	for _, table := range []string{"coupons", "deals", "sync_runs"} {
		if _, err := db.Exec("DELETE FROM "+table+" WHERE store_id = ?", id.String()); err != nil {
			return fmt.Errorf("failed to delete store %s: %w", table, err)
		}
	}
	if _, err := db.Exec("DELETE FROM stores WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	return nil
}

// UpdateStoreLastSync advances the store's last sync timestamp.
func UpdateStoreLastSync(db *sql.DB, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(`
		UPDATE stores SET last_sync_date = ?, updated_at = ? WHERE id = ?
	`, at, at, id.String())
	if err != nil {
		return fmt.Errorf("failed to update last sync date: %w", err)
	}
	return nil
}
