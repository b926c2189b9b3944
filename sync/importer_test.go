package sync

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couponpress/woosync/db"
	"github.com/couponpress/woosync/models"
	"github.com/couponpress/woosync/woo"
)

// fakeWoo is an in-memory WooCommerce REST endpoint. Fixture payloads are
// raw JSON pages; list endpoints serve them on page 1 and an empty array
// afterwards.
type fakeWoo struct {
	coupons          string
	products         string
	details          map[int64]string
	variations       map[int64]string
	failCoupons      bool
	failProductPages bool
	failVariations   []int64
}

func (f *fakeWoo) client(t *testing.T) *woo.Client {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/wp-json/wc/v3/coupons", func(w http.ResponseWriter, r *http.Request) {
		if f.failCoupons {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		servePage(w, r, f.coupons)
	})
	mux.HandleFunc("/wp-json/wc/v3/products", func(w http.ResponseWriter, r *http.Request) {
		if f.failProductPages && r.URL.Query().Get("page") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		servePage(w, r, f.products)
	})
	for id, payload := range f.details {
		body := payload
		mux.HandleFunc(fmt.Sprintf("/wp-json/wc/v3/products/%d", id), func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	for id, payload := range f.variations {
		body := payload
		mux.HandleFunc(fmt.Sprintf("/wp-json/wc/v3/products/%d/variations", id), func(w http.ResponseWriter, r *http.Request) {
			servePage(w, r, body)
		})
	}
	for _, id := range f.failVariations {
		mux.HandleFunc(fmt.Sprintf("/wp-json/wc/v3/products/%d/variations", id), func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return woo.NewClient(woo.Credentials{BaseURL: server.URL, ConsumerKey: "k", ConsumerSecret: "s"})
}

func servePage(w http.ResponseWriter, r *http.Request, payload string) {
	if r.URL.Query().Get("page") != "1" || payload == "" {
		_, _ = w.Write([]byte(`[]`))
		return
	}
	_, _ = w.Write([]byte(payload))
}

func newImporterDB(t *testing.T, withCategory bool) (*sql.DB, *models.Store) {
	t.Helper()
	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := &models.Store{Name: "test-store", BaseURL: "https://shop.test", ConsumerKey: "ck", ConsumerSecret: "cs"}
	if withCategory {
		category := int64(5)
		store.DefaultCategoryID = &category
	}
	require.NoError(t, db.CreateStore(database, store))
	return database, store
}

func TestCouponsImporterCollapsesSharedPermalink(t *testing.T) {
	// SAVE20 references two Woo ids that are variations of the same
	// parent; exactly one record must come out.
	fake := &fakeWoo{
		coupons: `[{"id":1,"code":"SAVE20","discount_type":"percent","amount":"20","product_ids":[101,102]}]`,
		details: map[int64]string{
			101: `{"id":101,"name":"Item - S","permalink":"https://shop.test/item?attr=s","parent_id":100,"regular_price":"10"}`,
			102: `{"id":102,"name":"Item - M","permalink":"https://shop.test/item?attr=m","parent_id":100,"regular_price":"10"}`,
			100: `{"id":100,"name":"Item","permalink":"https://shop.test/item","regular_price":"10","images":[{"src":"https://img/item.jpg"}]}`,
		},
	}
	database, store := newImporterDB(t, false)

	summary, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Materialized)

	coupons, err := db.ListCoupons(database, store.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "https://shop.test/item", coupons[0].DedupKey)
}

func TestCouponsImporterSkipsCategoryOnly(t *testing.T) {
	fake := &fakeWoo{
		coupons: `[{"id":1,"code":"CATS5","discount_type":"percent","amount":"5","product_categories":[5]}]`,
	}
	database, store := newImporterDB(t, false)

	summary, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Incompatible)
	assert.Zero(t, summary.Materialized)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "CATS5", summary.Skipped[0].Item)

	count, err := db.CountCoupons(database, store.ID)
	require.NoError(t, err)
	assert.Zero(t, count, "materializer must never run for category-only coupons")
}

func TestCouponsImporterAllProductsPricing(t *testing.T) {
	// STOREWIDE10 with a featured on-sale representative at regular 20,
	// sale 15: original 20, discounted 15 * 0.9 = 13.5.
	fake := &fakeWoo{
		coupons:  `[{"id":1,"code":"STOREWIDE10","discount_type":"percent","amount":"10"}]`,
		products: `[{"id":7,"name":"Blue Mug","permalink":"https://shop.test/blue-mug","featured":true,"on_sale":true,"regular_price":"20","sale_price":"15"}]`,
	}
	database, store := newImporterDB(t, false)

	summary, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Materialized)

	coupons, err := db.ListCoupons(database, store.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, 20.0, coupons[0].OriginalPrice)
	assert.Equal(t, 13.5, coupons[0].DiscountedPrice)
	assert.Equal(t, "https://shop.test/blue-mug", coupons[0].DedupKey)
}

func TestCouponsImporterAllProductsNoRepresentative(t *testing.T) {
	fake := &fakeWoo{
		coupons: `[{"id":1,"code":"STOREWIDE10","discount_type":"percent","amount":"10"}]`,
	}
	database, store := newImporterDB(t, false)

	summary, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Materialized)

	coupons, err := db.ListCoupons(database, store.ID)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, models.AllProductsMarker("STOREWIDE10"), coupons[0].DedupKey)
}

func TestCouponsImporterIdempotent(t *testing.T) {
	fake := &fakeWoo{
		coupons: `[{"id":1,"code":"SAVE20","discount_type":"percent","amount":"20","product_ids":[101]}]`,
		details: map[int64]string{
			101: `{"id":101,"name":"Item","permalink":"https://shop.test/item","regular_price":"10"}`,
		},
	}
	database, store := newImporterDB(t, false)
	client := fake.client(t)

	for i := 0; i < 2; i++ {
		summary, err := NewCouponsImporter(database, client, store).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Materialized)
	}

	count, err := db.CountCoupons(database, store.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-running must not create duplicates")
}

func TestCouponsImporterFetchFailureIsFatal(t *testing.T) {
	fake := &fakeWoo{failCoupons: true}
	database, store := newImporterDB(t, false)

	_, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.Error(t, err)

	runs, err := db.RecentSyncRuns(database, store.ID, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)

	fresh, err := db.GetStore(database, store.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.LastSyncDate, "failed runs must not advance last sync")
}

func TestCouponsImporterNotFoundIsSoftSkip(t *testing.T) {
	fake := &fakeWoo{
		coupons: `[{"id":1,"code":"SAVE20","discount_type":"percent","amount":"20","product_ids":[999]}]`,
	}
	database, store := newImporterDB(t, false)

	summary, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err, "a missing product must not fail the run")
	assert.Zero(t, summary.Materialized)
	assert.NotEmpty(t, summary.Skipped)
}

func TestCouponsImporterUpdatesLastSync(t *testing.T) {
	fake := &fakeWoo{}
	database, store := newImporterDB(t, false)

	_, err := NewCouponsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)

	fresh, err := db.GetStore(database, store.ID)
	require.NoError(t, err)
	assert.NotNil(t, fresh.LastSyncDate)
}

func TestDealsImporterRequiresDefaultCategory(t *testing.T) {
	fake := &fakeWoo{
		products: `[{"id":7,"name":"Blue Mug","permalink":"https://shop.test/blue-mug","on_sale":true,"regular_price":"20","sale_price":"15"}]`,
	}
	database, store := newImporterDB(t, false)

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Materialized)
	require.Len(t, summary.Skipped, 1)
	assert.Contains(t, summary.Skipped[0].Reason, "default category")
}

func TestDealsImporterMaterializes(t *testing.T) {
	fake := &fakeWoo{
		products: `[{"id":7,"name":"Blue Mug","permalink":"https://shop.test/blue-mug","on_sale":true,"regular_price":"20","sale_price":"15"}]`,
	}
	database, store := newImporterDB(t, true)

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Materialized)

	deals, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, 20.0, deals[0].OriginalPrice)
	assert.Equal(t, 15.0, deals[0].DiscountedPrice)
	assert.Equal(t, int64(5), deals[0].CategoryID)
	assert.True(t, deals[0].IsActive)
}

func TestDealsImporterSkipsCouponCoveredProducts(t *testing.T) {
	database, store := newImporterDB(t, true)

	covered := &models.CouponRecord{
		StoreID:      store.ID,
		Code:         "SAVE20",
		DedupKey:     "https://shop.test/blue-mug",
		ProductURL:   "https://shop.test/blue-mug",
		Title:        "Blue Mug",
		DiscountType: models.DiscountPercent,
		IsActive:     true,
	}
	require.NoError(t, db.UpsertCoupon(database, covered))

	// A deal for the covered product survives from an earlier run; its
	// product is still in the on-sale fetch, so the skip must not
	// deactivate it.
	existing := &models.DealRecord{StoreID: store.ID, ProductName: "Blue Mug", IsActive: true}
	require.NoError(t, db.UpsertDeal(database, existing))

	fake := &fakeWoo{
		products: `[{"id":7,"name":"Blue Mug","permalink":"https://shop.test/blue-mug","on_sale":true,"regular_price":"20","sale_price":"15"}]`,
	}

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Materialized)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "covered by coupon", summary.Skipped[0].Reason)

	deals, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.True(t, deals[0].IsActive)
}

func TestDealsImporterDeactivatesOffSale(t *testing.T) {
	database, store := newImporterDB(t, true)

	// A deal from an earlier run whose product is no longer on sale.
	stale := &models.DealRecord{StoreID: store.ID, ProductName: "Old Kettle", IsActive: true}
	require.NoError(t, db.UpsertDeal(database, stale))

	fake := &fakeWoo{
		products: `[{"id":7,"name":"Blue Mug","permalink":"https://shop.test/blue-mug","on_sale":true,"regular_price":"20","sale_price":"15"}]`,
	}

	_, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)

	deals, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	byName := make(map[string]bool, len(deals))
	for _, deal := range deals {
		byName[deal.ProductName] = deal.IsActive
	}
	assert.True(t, byName["Blue Mug"])
	assert.False(t, byName["Old Kettle"], "off-sale deals are deactivated")
}

func TestDealsImporterKeepsDealOnTransientFailure(t *testing.T) {
	database, store := newImporterDB(t, true)

	// T-Shirt was materialized by an earlier run and is still in the
	// on-sale fetch; this run's variation fetch for it breaks.
	existing := &models.DealRecord{StoreID: store.ID, ProductName: "T-Shirt", IsActive: true}
	require.NoError(t, db.UpsertDeal(database, existing))

	fake := &fakeWoo{
		products:       `[{"id":12,"name":"T-Shirt","permalink":"https://shop.test/t-shirt","on_sale":true,"type":"variable","variations":[1,2]}]`,
		failVariations: []int64{12},
	}

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Materialized)
	require.Len(t, summary.Failed, 1)

	deals, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.True(t, deals[0].IsActive, "a failure on an item still in the fetch must not deactivate its deal")
}

func TestDealsImporterSkipsDeactivationOnPartialFetch(t *testing.T) {
	database, store := newImporterDB(t, true)

	// Old Kettle is missing from the partial fetch, but a broken page 2
	// means its absence proves nothing.
	existing := &models.DealRecord{StoreID: store.ID, ProductName: "Old Kettle", IsActive: true}
	require.NoError(t, db.UpsertDeal(database, existing))

	// A full first page forces a second request, which fails.
	items := make([]string, woo.PerPage)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":%d,"name":"Gadget %d","permalink":"https://shop.test/gadget-%d","on_sale":true,"regular_price":"20","sale_price":"15"}`, i+1, i+1, i+1)
	}
	fake := &fakeWoo{
		products:         "[" + strings.Join(items, ",") + "]",
		failProductPages: true,
	}

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, woo.PerPage, summary.Fetched)
	assert.NotEmpty(t, summary.Failed)

	fresh, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	for _, deal := range fresh {
		if deal.ProductName == "Old Kettle" {
			assert.True(t, deal.IsActive, "partial fetches must not trigger the deactivation sweep")
		}
	}
}

func TestDealsImporterVariableProduct(t *testing.T) {
	fake := &fakeWoo{
		products: `[{"id":12,"name":"T-Shirt","permalink":"https://shop.test/t-shirt","on_sale":true,"type":"variable","variations":[1,2]}]`,
		variations: map[int64]string{
			12: `[
				{"id":1,"regular_price":"10","stock_status":"instock","attributes":[{"name":"Size","option":"S"}]},
				{"id":2,"regular_price":"10","sale_price":"8","stock_status":"instock","attributes":[{"name":"Size","option":"M"}]}
			]`,
		},
	}
	database, store := newImporterDB(t, true)

	summary, err := NewDealsImporter(database, fake.client(t), store).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.Materialized)

	deals, err := db.ListDeals(database, store.ID)
	require.NoError(t, err)
	require.Len(t, deals, 1)

	snapshot := deals[0].Variations
	require.NotNil(t, snapshot)
	assert.Equal(t, []int64{2}, snapshot.ApplicableVariationIDs)
	assert.False(t, snapshot.AllVariationsOnSale)
	assert.Equal(t, int64(2), snapshot.DefaultVariationID)
	assert.Equal(t, 10.0, deals[0].OriginalPrice, "pricing follows the default variation")
	assert.Equal(t, 8.0, deals[0].DiscountedPrice)
}
