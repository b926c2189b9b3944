// ABOUTME: Coupon sync orchestrator for one store
// ABOUTME: Fetches, classifies, resolves, prices, and materializes compatible coupons
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/woo"
)

// CouponsImporter runs the full coupon pipeline against one store.
type CouponsImporter struct {
	db      *sql.DB
	client  *woo.Client
	store   *models.Store
	workers int

	onSaleOnce sync.Once
	onSale     []woo.Product
	onSaleErr  error
}

func NewCouponsImporter(database *sql.DB, client *woo.Client, store *models.Store) *CouponsImporter {
	return &CouponsImporter{
		db:      database,
		client:  client,
		store:   store,
		workers: defaultWorkers,
	}
}

// Run executes one coupon sync. Only a complete inability to fetch the
// coupon list is run-fatal; every downstream failure is recorded per item
// and the run proceeds.
func (ci *CouponsImporter) Run(ctx context.Context) (*Summary, error) {
	runID, err := db.StartSyncRun(ci.db, ci.store.ID, models.RunKindCoupons)
	if err != nil {
		return nil, err
	}

	summary := newSummary()

	fmt.Printf("Syncing coupons for %s...\n", ci.store.Name)
	coupons, fetchErr := woo.FetchAll(ctx, ci.client.ListCoupons)
	if fetchErr != nil && len(coupons) == 0 {
		msg := fetchErr.Error()
		_ = db.FinishSyncRun(ci.db, runID, models.RunStatusFailed, db.RunCounters{}, &msg)
		return nil, fmt.Errorf("fetch coupons: %w", fetchErr)
	}
	if fetchErr != nil {
		// Pagination broke mid-run; keep the pages already fetched.
		summary.addFailure("coupons fetch", fetchErr)
	}
	summary.Fetched = len(coupons)
	fmt.Printf("  → Fetched %d coupons\n", len(coupons))

	classified := make([]Classification, len(coupons))
	for i := range coupons {
		classified[i] = Classify(&coupons[i])
		if classified[i].Compatible {
			summary.Compatible++
		} else {
			summary.Incompatible++
			summary.addSkip(coupons[i].Code, classified[i].Reason)
		}
	}

	materializer := NewMaterializer(ci.db, ci.store.ID)
	runPool(ctx, ci.workers, len(coupons), func(ctx context.Context, i int) {
		if !classified[i].Compatible {
			return
		}
		ci.importCoupon(ctx, &coupons[i], classified[i].Kind, materializer, summary)
	})

	summary.finish()
	if err := db.UpdateStoreLastSync(ci.db, ci.store.ID, summary.Finished); err != nil {
		summary.addFailure(ci.store.Name, err)
	}
	_ = db.FinishSyncRun(ci.db, runID, models.RunStatusCompleted, counters(summary), nil)

	fmt.Printf("  ✓ %s\n", summary)
	return summary, nil
}

func (ci *CouponsImporter) importCoupon(ctx context.Context, coupon *woo.Coupon, kind CouponKind, materializer *Materializer, summary *Summary) {
	switch kind {
	case KindMultiProduct:
		ci.importMultiProduct(ctx, coupon, materializer, summary)
	case KindAllProducts:
		ci.importAllProducts(ctx, coupon, materializer, summary)
	}
}

// importMultiProduct resolves every referenced product, collapses
// variations of the same parent onto one entry, and materializes one
// record per surviving group.
func (ci *CouponsImporter) importMultiProduct(ctx context.Context, coupon *woo.Coupon, materializer *Materializer, summary *Summary) {
	var resolved []*ResolvedProduct
	for _, productID := range coupon.ProductIDs {
		product, err := Resolve(ctx, ci.client, productID)
		if err != nil {
			summary.addFailure(coupon.Code, err)
			continue
		}
		if product == nil {
			summary.addSkip(coupon.Code, fmt.Sprintf("product %d not found", productID))
			continue
		}
		resolved = append(resolved, product)
	}

	if len(resolved) == 0 {
		// Every referenced product failed to resolve; the key ladder has
		// nothing to stand on.
		entry := &CouponEntry{Coupon: coupon, Kind: KindMultiProduct}
		if reason, _ := materializer.MaterializeCoupon(entry); reason != "" {
			summary.addSkip(coupon.Code, reason)
		}
		return
	}

	for _, product := range GroupByIdentity(resolved) {
		ci.materializeForProduct(ctx, coupon, KindMultiProduct, product, materializer, summary)
	}
}

// importAllProducts picks a representative on-sale product to drive
// display and materializes a single storewide record.
func (ci *CouponsImporter) importAllProducts(ctx context.Context, coupon *woo.Coupon, materializer *Materializer, summary *Summary) {
	products, err := ci.onSaleProducts(ctx)
	if err != nil {
		summary.addFailure(coupon.Code, err)
		return
	}

	representative := ChooseRepresentative(products)
	if representative == nil {
		// No on-sale product to display; materialize with the synthetic
		// marker and let display fall back to the store logo.
		entry := &CouponEntry{Coupon: coupon, Kind: KindAllProducts}
		reason, err := materializer.MaterializeCoupon(entry)
		if err != nil {
			summary.addFailure(coupon.Code, err)
			return
		}
		if reason != "" {
			summary.addSkip(coupon.Code, reason)
			return
		}
		summary.addMaterialized()
		return
	}

	resolved := &ResolvedProduct{
		Product:      representative,
		CanonicalURL: representative.Permalink,
	}
	ci.materializeForProduct(ctx, coupon, KindAllProducts, resolved, materializer, summary)
}

// materializeForProduct runs the pricing and materialization stages for
// one (coupon, product) pairing.
func (ci *CouponsImporter) materializeForProduct(ctx context.Context, coupon *woo.Coupon, kind CouponKind, product *ResolvedProduct, materializer *Materializer, summary *Summary) {
	entry := &CouponEntry{Coupon: coupon, Kind: kind, Product: product}

	base := BasePrices{
		Regular: product.Product.RegularPriceValue(),
		Sale:    product.Product.SalePriceValue(),
		Price:   product.Product.PriceValue(),
	}

	if product.Product.IsVariable() {
		set, err := ProcessVariations(ctx, ci.client, product.Product.ID)
		if err != nil {
			// A partial variation fetch still prices the product; the
			// failure is recorded either way.
			summary.addFailure(coupon.Code, err)
		}
		if set == nil {
			if err == nil {
				summary.addSkip(coupon.Code, fmt.Sprintf("product %d has no viable variations", product.Product.ID))
			}
			return
		}
		entry.Snapshot = set.Snapshot()
		base = BasePrices{
			Regular: woo.ParsePrice(set.Default.RegularPrice),
			Sale:    woo.ParsePrice(set.Default.SalePrice),
			Price:   woo.ParsePrice(set.Default.Price),
		}
	}

	entry.Price = ComputePrice(base, coupon.DiscountType, woo.ParsePrice(coupon.Amount))

	reason, err := materializer.MaterializeCoupon(entry)
	if err != nil {
		summary.addFailure(coupon.Code, err)
		return
	}
	if reason != "" {
		summary.addSkip(coupon.Code, reason)
		return
	}
	summary.addMaterialized()
}

// onSaleProducts fetches the store's on-sale catalog once per run, shared
// across every storewide coupon.
func (ci *CouponsImporter) onSaleProducts(ctx context.Context) ([]woo.Product, error) {
	ci.onSaleOnce.Do(func() {
		products, err := woo.FetchAll(ctx, ci.client.ListOnSaleProducts)
		if err != nil && len(products) == 0 {
			ci.onSaleErr = err
			return
		}
		ci.onSale = products
	})
	return ci.onSale, ci.onSaleErr
}

func counters(s *Summary) db.RunCounters {
	return db.RunCounters{
		Fetched:      s.Fetched,
		Compatible:   s.Compatible,
		Incompatible: s.Incompatible,
		Materialized: s.Materialized,
		Skipped:      len(s.Skipped),
		Failed:       len(s.Failed),
	}
}
