// ABOUTME: Authenticated HTTP client for a single WooCommerce store
// ABOUTME: Handles request signing, rate limiting, and retry with backoff
package woo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiPrefix = "/wp-json/wc/v3"

	// PerPage is the fixed page size used for every list request.
	PerPage = 100

	retryMax       = 3
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second

	// defaultRequestsPerSecond keeps a single store's sync under typical
	// per-key rate limits even when resolution fans out across workers.
	defaultRequestsPerSecond = 8
)

// ErrNotFound marks a 404 on a product or parent fetch. Callers treat it as
// a soft skip, distinct from transport failures.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-2xx response from the merchant API.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("merchant request failed: %s", e.Status)
	}
	return fmt.Sprintf("merchant request failed: %s: %s", e.Status, e.Body)
}

// Credentials identify and authenticate one merchant store.
type Credentials struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// Client issues authenticated requests against one store's REST API.
// Construct one per sync run and pass it through the pipeline.
type Client struct {
	creds   Credentials
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client for the given store credentials.
func NewClient(creds Credentials) *Client {
	return &Client{
		creds:   creds,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
	}
}

// ListCoupons fetches one page of coupons.
func (c *Client) ListCoupons(ctx context.Context, page int) ([]Coupon, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(PerPage))
	query.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, "coupons", query)
	if err != nil {
		return nil, err
	}

	var coupons []Coupon
	if err := DecodeArray(body, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

// ListOnSaleProducts fetches one page of published products currently on sale.
func (c *Client) ListOnSaleProducts(ctx context.Context, page int) ([]Product, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(PerPage))
	query.Set("page", strconv.Itoa(page))
	query.Set("on_sale", "true")
	query.Set("status", "publish")

	body, err := c.get(ctx, "products", query)
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := DecodeArray(body, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches full product detail. Returns ErrNotFound on 404.
func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	body, err := c.get(ctx, fmt.Sprintf("products/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var product Product
	if err := DecodeObject(body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListVariations fetches one page of published variations for a product.
func (c *Client) ListVariations(ctx context.Context, productID int64, page int) ([]Variation, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(PerPage))
	query.Set("page", strconv.Itoa(page))
	query.Set("status", "publish")

	body, err := c.get(ctx, fmt.Sprintf("products/%d/variations", productID), query)
	if err != nil {
		return nil, err
	}

	var variations []Variation
	if err := DecodeArray(body, &variations); err != nil {
		return nil, err
	}
	return variations, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.creds.BaseURL, "/") + apiPrefix + "/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= retryMax; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, retryDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.doOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.creds.ConsumerKey, c.creds.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merchant request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       trimBody(body),
		}
	}
	return body, nil
}

func trimBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > previewLimit {
		s = s[:previewLimit]
	}
	return s
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	delay := retryBaseDelay << attempt
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
