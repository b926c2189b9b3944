// ABOUTME: Sync CLI commands
// ABOUTME: Runs coupon and deal pipelines and reports run summaries
package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/sync"
	"github.com/couponpress/woosync/woo"
)

const defaultRunTimeout = 15 * time.Minute

// SyncCouponsCommand runs the coupon pipeline for one store.
func SyncCouponsCommand(database *sql.DB, args []string) error {
	store, timeout, err := parseSyncFlags(database, "coupons", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	importer := sync.NewCouponsImporter(database, clientFor(store), store)
	summary, err := importer.Run(ctx)
	if err != nil {
		return fmt.Errorf("coupon sync failed: %w", err)
	}

	printSummary(summary)
	return nil
}

// SyncDealsCommand runs the deal pipeline for one store.
func SyncDealsCommand(database *sql.DB, args []string) error {
	store, timeout, err := parseSyncFlags(database, "deals", args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	importer := sync.NewDealsImporter(database, clientFor(store), store)
	summary, err := importer.Run(ctx)
	if err != nil {
		return fmt.Errorf("deal sync failed: %w", err)
	}

	printSummary(summary)
	return nil
}

// SyncStatusCommand shows per-store sync state and recent runs.
func SyncStatusCommand(database *sql.DB, args []string) error {
	stores, err := db.ListStores(database)
	if err != nil {
		return err
	}
	if len(stores) == 0 {
		fmt.Println("No stores registered.")
		return nil
	}

	for _, store := range stores {
		lastSync := "never"
		if store.LastSyncDate != nil {
			lastSync = store.LastSyncDate.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s (last sync: %s)\n", store.Name, lastSync)

		runs, err := db.RecentSyncRuns(database, store.ID, 5)
		if err != nil {
			return err
		}
		for _, run := range runs {
			line := fmt.Sprintf("  %s %-8s %-10s fetched=%d materialized=%d skipped=%d failed=%d",
				run.StartedAt.Format("2006-01-02 15:04"), run.Kind, run.Status,
				run.Fetched, run.Materialized, run.Skipped, run.Failed)
			if run.ErrorMessage != nil {
				line += " error=" + *run.ErrorMessage
			}
			fmt.Println(line)
		}
	}
	return nil
}

func parseSyncFlags(database *sql.DB, name string, args []string) (*models.Store, time.Duration, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	storeName := fs.String("store", "", "Store name (required)")
	timeout := fs.Duration("timeout", defaultRunTimeout, "Per-run deadline")
	_ = fs.Parse(args)

	if *storeName == "" {
		return nil, 0, fmt.Errorf("--store is required")
	}

	store, err := db.GetStoreByName(database, *storeName)
	if err != nil {
		return nil, 0, err
	}
	if store == nil {
		return nil, 0, fmt.Errorf("store %q not found; run 'woosync store add' first", *storeName)
	}
	return store, *timeout, nil
}

func clientFor(store *models.Store) *woo.Client {
	return woo.NewClient(woo.Credentials{
		BaseURL:        store.BaseURL,
		ConsumerKey:    store.ConsumerKey,
		ConsumerSecret: store.ConsumerSecret,
	})
}

func printSummary(summary *sync.Summary) {
	fmt.Printf("\nRun summary: %s\n", summary)
	for _, skip := range summary.Skipped {
		fmt.Printf("  skipped %s: %s\n", skip.Item, skip.Reason)
	}
	for _, failure := range summary.Failed {
		fmt.Printf("  failed %s: %s\n", failure.Item, failure.Err)
	}
}
