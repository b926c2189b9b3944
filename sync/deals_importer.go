// ABOUTME: Deal sync orchestrator for one store
// ABOUTME: Materializes on-sale products not covered by any coupon as deal records
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/woo"
)

// DealsImporter runs the deal pipeline against one store.
type DealsImporter struct {
	db      *sql.DB
	client  *woo.Client
	store   *models.Store
	workers int
}

func NewDealsImporter(database *sql.DB, client *woo.Client, store *models.Store) *DealsImporter {
	return &DealsImporter{
		db:      database,
		client:  client,
		store:   store,
		workers: defaultWorkers,
	}
}

// Run executes one deal sync. The store must have a default category
// configured; without one every candidate is skipped rather than
// materialized into an uncategorized state. Deals whose products no longer
// appear in the on-sale fetch are deactivated at the end of the run.
func (di *DealsImporter) Run(ctx context.Context) (*Summary, error) {
	runID, err := db.StartSyncRun(di.db, di.store.ID, models.RunKindDeals)
	if err != nil {
		return nil, err
	}

	summary := newSummary()

	fmt.Printf("Syncing deals for %s...\n", di.store.Name)
	products, fetchErr := woo.FetchAll(ctx, di.client.ListOnSaleProducts)
	if fetchErr != nil && len(products) == 0 {
		msg := fetchErr.Error()
		_ = db.FinishSyncRun(di.db, runID, models.RunStatusFailed, db.RunCounters{}, &msg)
		return nil, fmt.Errorf("fetch on-sale products: %w", fetchErr)
	}
	if fetchErr != nil {
		summary.addFailure("products fetch", fetchErr)
	}
	summary.Fetched = len(products)
	fmt.Printf("  → Fetched %d on-sale products\n", len(products))

	if di.store.DefaultCategoryID == nil {
		for i := range products {
			summary.addSkip(products[i].Name, "store has no default category configured")
		}
		summary.finish()
		_ = db.FinishSyncRun(di.db, runID, models.RunStatusCompleted, counters(summary), nil)
		fmt.Printf("  ✓ %s\n", summary)
		return summary, nil
	}
	categoryID := *di.store.DefaultCategoryID

	covered, err := di.couponCoveredProducts()
	if err != nil {
		msg := err.Error()
		_ = db.FinishSyncRun(di.db, runID, models.RunStatusFailed, counters(summary), &msg)
		return nil, err
	}

	materializer := NewMaterializer(di.db, di.store.ID)
	runPool(ctx, di.workers, len(products), func(ctx context.Context, i int) {
		product := &products[i]
		if covered[product.Permalink] || covered[strconv.FormatInt(product.ID, 10)] {
			summary.addSkip(product.Name, "covered by coupon")
			return
		}
		di.importDeal(ctx, product, categoryID, materializer, summary)
	})

	// Every fetched product is on sale by definition; only absence from
	// the fetch deactivates a deal. A partial fetch proves nothing about
	// the products it is missing, so the sweep is skipped for that run.
	if fetchErr == nil {
		activeNames := make([]string, 0, len(products))
		for i := range products {
			if products[i].Name != "" {
				activeNames = append(activeNames, products[i].Name)
			}
		}
		deactivated, err := db.DeactivateDealsNotIn(di.db, di.store.ID, activeNames)
		if err != nil {
			summary.addFailure(di.store.Name, err)
		} else if deactivated > 0 {
			fmt.Printf("  → Deactivated %d off-sale deals\n", deactivated)
		}
	}

	summary.finish()
	if err := db.UpdateStoreLastSync(di.db, di.store.ID, summary.Finished); err != nil {
		summary.addFailure(di.store.Name, err)
	}
	_ = db.FinishSyncRun(di.db, runID, models.RunStatusCompleted, counters(summary), nil)

	fmt.Printf("  ✓ %s\n", summary)
	return summary, nil
}

// importDeal prices and materializes one on-sale product.
func (di *DealsImporter) importDeal(ctx context.Context, product *woo.Product, categoryID int64, materializer *Materializer, summary *Summary) {
	base := BasePrices{
		Regular: product.RegularPriceValue(),
		Sale:    product.SalePriceValue(),
		Price:   product.PriceValue(),
	}

	var snapshot *models.VariationSnapshot
	if product.IsVariable() {
		set, err := ProcessVariations(ctx, di.client, product.ID)
		if err != nil {
			// A partial variation fetch still prices the product; the
			// failure is recorded either way.
			summary.addFailure(product.Name, err)
		}
		if set == nil {
			if err == nil {
				summary.addSkip(product.Name, "no viable variations")
			}
			return
		}
		snapshot = set.Snapshot()
		base = BasePrices{
			Regular: woo.ParsePrice(set.Default.RegularPrice),
			Sale:    woo.ParsePrice(set.Default.SalePrice),
			Price:   woo.ParsePrice(set.Default.Price),
		}
	}

	// No coupon applies; the discount is the sale price itself.
	price := ComputePrice(base, "", 0)

	reason, err := materializer.MaterializeDeal(product, categoryID, price, snapshot)
	if err != nil {
		summary.addFailure(product.Name, err)
		return
	}
	if reason != "" {
		summary.addSkip(product.Name, reason)
		return
	}
	summary.addMaterialized()
}

// couponCoveredProducts indexes the store's materialized coupons by
// product URL and Woo product id so on-sale products already carrying a
// coupon are not duplicated as deals.
func (di *DealsImporter) couponCoveredProducts() (map[string]bool, error) {
	coupons, err := db.ListCoupons(di.db, di.store.ID)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	covered := make(map[string]bool, len(coupons))
	for i := range coupons {
		if coupons[i].ProductURL != "" {
			covered[coupons[i].ProductURL] = true
		}
		if coupons[i].WooProductID > 0 {
			covered[strconv.FormatInt(coupons[i].WooProductID, 10)] = true
		}
	}
	return covered, nil
}
