// ABOUTME: Store registry CLI commands
// ABOUTME: Handles adding, listing, and removing merchant stores
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
)

// StoreAddCommand registers a new merchant store. Credentials default to
// the WOO_CONSUMER_KEY / WOO_CONSUMER_SECRET environment variables so they
// stay out of shell history.
func StoreAddCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Store name (required)")
	baseURL := fs.String("url", "", "Store base URL (required)")
	key := fs.String("key", os.Getenv("WOO_CONSUMER_KEY"), "WooCommerce consumer key")
	secret := fs.String("secret", os.Getenv("WOO_CONSUMER_SECRET"), "WooCommerce consumer secret")
	defaultCategory := fs.Int64("default-category", 0, "Default category id for deal imports")
	_ = fs.Parse(args)

	if *name == "" || *baseURL == "" {
		return fmt.Errorf("both --name and --url are required")
	}
	if *key == "" || *secret == "" {
		return fmt.Errorf("consumer key and secret are required (flags or WOO_CONSUMER_KEY/WOO_CONSUMER_SECRET)")
	}

	existing, err := db.GetStoreByName(database, *name)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("store %q already exists", *name)
	}

	store := &models.Store{
		Name:           *name,
		BaseURL:        *baseURL,
		ConsumerKey:    *key,
		ConsumerSecret: *secret,
	}
	if *defaultCategory > 0 {
		store.DefaultCategoryID = defaultCategory
	}

	if err := db.CreateStore(database, store); err != nil {
		return err
	}

	fmt.Printf("✓ Added store %q (%s)\n", store.Name, store.BaseURL)
	if store.DefaultCategoryID == nil {
		fmt.Println("  Note: no default category set; deal syncs will skip every product")
	}
	return nil
}

// StoreListCommand prints the registered stores.
func StoreListCommand(database *sql.DB, args []string) error {
	stores, err := db.ListStores(database)
	if err != nil {
		return err
	}

	if len(stores) == 0 {
		fmt.Println("No stores registered. Run 'woosync store add' first.")
		return nil
	}

	for _, store := range stores {
		lastSync := "never"
		if store.LastSyncDate != nil {
			lastSync = store.LastSyncDate.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-20s %-40s last sync: %s\n", store.Name, store.BaseURL, lastSync)
	}
	return nil
}

// StoreRemoveCommand deletes a store and its materialized records.
func StoreRemoveCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	name := fs.String("name", "", "Store name (required)")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	store, err := db.GetStoreByName(database, *name)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("store %q not found", *name)
	}

	if err := db.DeleteStore(database, store.ID); err != nil {
		return err
	}
	fmt.Printf("✓ Removed store %q\n", *name)
	return nil
}
