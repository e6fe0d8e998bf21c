package entities

import (
	"encoding/json"
)

// ProductResult is a single product record as returned by the marketplace
// backend search endpoints.
type ProductResult struct {
	ProductID string   `json:"product_id"`
	Name      string   `json:"product_name"`
	Brand     string   `json:"brand,omitempty"`
	Color     string   `json:"color,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	City      string   `json:"city,omitempty"`
}

// ShopResult is a single shop record as returned by the marketplace backend.
type ShopResult struct {
	ShopID     string   `json:"shop_id"`
	Name       string   `json:"shop_name"`
	City       string   `json:"city,omitempty"`
	Area       string   `json:"area,omitempty"`
	ImageURL   string   `json:"shop_image,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// ResultItem is a search result entry: either a product or a shop. Score is
// request-scoped, computed during ranking, and never persisted.
type ResultItem struct {
	Product *ProductResult
	Shop    *ShopResult
	Score   int
}

// ProductItem wraps a product record as a result item
func ProductItem(p ProductResult) ResultItem {
	return ResultItem{Product: &p}
}

// ShopItem wraps a shop record as a result item
func ShopItem(s ShopResult) ResultItem {
	return ResultItem{Shop: &s}
}

// Key returns the identifying key used for deduplication: the product id if
// present, else the shop id. Items without either return "" and are kept
// unconditionally.
func (r ResultItem) Key() string {
	if r.Product != nil && r.Product.ProductID != "" {
		return "product:" + r.Product.ProductID
	}
	if r.Shop != nil && r.Shop.ShopID != "" {
		return "shop:" + r.Shop.ShopID
	}
	return ""
}

// DisplayName returns the product or shop name
func (r ResultItem) DisplayName() string {
	if r.Product != nil {
		return r.Product.Name
	}
	if r.Shop != nil {
		return r.Shop.Name
	}
	return ""
}

// Brand returns the product brand; shops have none
func (r ResultItem) Brand() string {
	if r.Product != nil {
		return r.Product.Brand
	}
	return ""
}

// City returns the item's city, if known
func (r ResultItem) City() string {
	if r.Product != nil {
		return r.Product.City
	}
	if r.Shop != nil {
		return r.Shop.City
	}
	return ""
}

// Price returns the item's price, or nil when unknown. Shops carry no price.
func (r ResultItem) Price() *float64 {
	if r.Product != nil {
		return r.Product.Price
	}
	return nil
}

// MarshalJSON flattens the active variant and appends the ranking score.
func (r ResultItem) MarshalJSON() ([]byte, error) {
	var inner any
	switch {
	case r.Product != nil:
		inner = r.Product
	case r.Shop != nil:
		inner = r.Shop
	default:
		inner = struct{}{}
	}

	raw, err := json.Marshal(inner)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["score"] = r.Score

	return json.Marshal(fields)
}
