// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS stores (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	base_url TEXT NOT NULL,
	consumer_key TEXT NOT NULL,
	consumer_secret TEXT NOT NULL,
	default_category_id INTEGER,
	last_sync_date DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS coupons (
	id TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	code TEXT NOT NULL,
	dedup_key TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	product_url TEXT,
	woo_product_id INTEGER,
	discount_type TEXT NOT NULL,
	discount_amount REAL NOT NULL DEFAULT 0,
	original_price REAL NOT NULL DEFAULT 0,
	discounted_price REAL NOT NULL DEFAULT 0,
	image_urls TEXT,
	tags TEXT,
	variations TEXT,
	expires_at DATETIME,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (store_id) REFERENCES stores(id),
	UNIQUE (store_id, code, dedup_key)
);

CREATE INDEX IF NOT EXISTS idx_coupons_store_id ON coupons(store_id);
CREATE INDEX IF NOT EXISTS idx_coupons_code ON coupons(code);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	product_name TEXT NOT NULL,
	product_url TEXT,
	woo_product_id INTEGER,
	category_id INTEGER,
	original_price REAL NOT NULL DEFAULT 0,
	discounted_price REAL NOT NULL DEFAULT 0,
	image_urls TEXT,
	tags TEXT,
	variations TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (store_id) REFERENCES stores(id),
	UNIQUE (store_id, product_name)
);

CREATE INDEX IF NOT EXISTS idx_deals_store_id ON deals(store_id);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	store_id TEXT NOT NULL,
	kind TEXT NOT NULL CHECK(kind IN ('coupons', 'deals')),
	status TEXT NOT NULL CHECK(status IN ('running', 'completed', 'failed')),
	fetched INTEGER NOT NULL DEFAULT 0,
	compatible INTEGER NOT NULL DEFAULT 0,
	incompatible INTEGER NOT NULL DEFAULT 0,
	materialized INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	FOREIGN KEY (store_id) REFERENCES stores(id)
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_store_id ON sync_runs(store_id);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

// InitSchema creates all tables if they don't exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
