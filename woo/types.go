// ABOUTME: Remote DTOs for the WooCommerce REST API
// ABOUTME: Typed shapes for coupons, products, and variations as fetched
package woo

import (
	"strconv"
	"strings"
)

// Coupon is a raw coupon record as returned by GET /coupons.
type Coupon struct {
	ID                int64    `json:"id"`
	Code              string   `json:"code"`
	Amount            string   `json:"amount"`
	DiscountType      string   `json:"discount_type"`
	Description       string   `json:"description"`
	DateExpires       string   `json:"date_expires"`
	UsageLimit        int      `json:"usage_limit"`
	UsageCount        int      `json:"usage_count"`
	FreeShipping      bool     `json:"free_shipping"`
	ProductIDs        []int64  `json:"product_ids"`
	ExcludedProducts  []int64  `json:"excluded_product_ids"`
	ProductCategories []int64  `json:"product_categories"`
	EmailRestrictions []string `json:"email_restrictions"`
}

// Product is a raw product record as returned by GET /products/{id}.
// Prices arrive as strings ("19.99" or ""); use the Price helpers.
type Product struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	Featured     bool       `json:"featured"`
	Permalink    string     `json:"permalink"`
	ParentID     int64      `json:"parent_id"`
	Price        string     `json:"price"`
	RegularPrice string     `json:"regular_price"`
	SalePrice    string     `json:"sale_price"`
	OnSale       bool       `json:"on_sale"`
	Images       []Image    `json:"images"`
	Categories   []Category `json:"categories"`
	Tags         []Tag      `json:"tags"`
	Variations   []int64    `json:"variations"`
}

// Variation is a raw variation record from GET /products/{id}/variations.
type Variation struct {
	ID           int64       `json:"id"`
	SKU          string      `json:"sku"`
	Status       string      `json:"status"`
	Purchasable  *bool       `json:"purchasable"`
	StockStatus  string      `json:"stock_status"`
	Price        string      `json:"price"`
	RegularPrice string      `json:"regular_price"`
	SalePrice    string      `json:"sale_price"`
	Attributes   []Attribute `json:"attributes"`
	Image        *Image      `json:"image"`
}

type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Attribute struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ParsePrice converts a Woo price string to a float. Empty, whitespace, or
// malformed values parse to 0.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// RegularPriceValue returns the parsed regular price.
func (p *Product) RegularPriceValue() float64 { return ParsePrice(p.RegularPrice) }

// SalePriceValue returns the parsed sale price.
func (p *Product) SalePriceValue() float64 { return ParsePrice(p.SalePrice) }

// PriceValue returns the parsed generic price field.
func (p *Product) PriceValue() float64 { return ParsePrice(p.Price) }

// IsVariable reports whether the product carries independent variations.
func (p *Product) IsVariable() bool {
	return p.Type == "variable" || len(p.Variations) > 0
}

// FirstImage returns the first image URL, or "" when the product has none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// IsPurchasable reports the purchasable flag, defaulting to true when the
// API omits it.
func (v *Variation) IsPurchasable() bool {
	return v.Purchasable == nil || *v.Purchasable
}

// InStock reports whether the variation's stock status allows purchase.
func (v *Variation) InStock() bool {
	return v.StockStatus == "instock" || v.StockStatus == ""
}

// OnSale reports whether the variation has a positive sale price strictly
// below its positive regular price.
func (v *Variation) OnSale() bool {
	sale := ParsePrice(v.SalePrice)
	regular := ParsePrice(v.RegularPrice)
	return sale > 0 && regular > 0 && sale < regular
}

// EffectivePrice is the sale price when on sale, else the regular price.
func (v *Variation) EffectivePrice() float64 {
	if v.OnSale() {
		return ParsePrice(v.SalePrice)
	}
	return ParsePrice(v.RegularPrice)
}

// AttributeMap flattens the attribute list into name→option form.
func (v *Variation) AttributeMap() map[string]string {
	if len(v.Attributes) == 0 {
		return nil
	}
	m := make(map[string]string, len(v.Attributes))
	for _, a := range v.Attributes {
		m[a.Name] = a.Option
	}
	return m
}
