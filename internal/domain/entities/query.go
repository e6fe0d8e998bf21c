package entities

import (
	"strings"
)

// SearchKind selects which backend surface a search targets.
type SearchKind string

const (
	SearchKindProduct  SearchKind = "product"
	SearchKindCategory SearchKind = "category"
	SearchKindShop     SearchKind = "shop"
)

// ParseSearchKind validates a search kind string, defaulting to product.
func ParseSearchKind(s string) (SearchKind, bool) {
	switch SearchKind(strings.ToLower(strings.TrimSpace(s))) {
	case SearchKindProduct, "":
		return SearchKindProduct, true
	case SearchKindCategory:
		return SearchKindCategory, true
	case SearchKindShop:
		return SearchKindShop, true
	}
	return SearchKindProduct, false
}

// SortMode selects the ordering applied to ranked results.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortName      SortMode = "name"
)

// ParseSortMode validates a sort mode string, defaulting to relevance.
func ParseSortMode(s string) (SortMode, bool) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case SortRelevance, "":
		return SortRelevance, true
	case SortPriceAsc:
		return SortPriceAsc, true
	case SortPriceDesc:
		return SortPriceDesc, true
	case SortName:
		return SortName, true
	}
	return SortRelevance, false
}

// GeoPoint is an optional user location attached to a query.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// QueryContext captures one search invocation's inputs. It is immutable for
// the duration of the invocation.
type QueryContext struct {
	Term     string
	City     string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
	Sort     SortMode
	Location *GeoPoint
}

// NormalizedTerm returns the query term lowered and trimmed
func (q QueryContext) NormalizedTerm() string {
	return strings.ToLower(strings.TrimSpace(q.Term))
}

// NormalizedCity returns the city filter lowered and trimmed
func (q QueryContext) NormalizedCity() string {
	return strings.ToLower(strings.TrimSpace(q.City))
}

// NormalizedBrand returns the brand filter lowered and trimmed
func (q QueryContext) NormalizedBrand() string {
	return strings.ToLower(strings.TrimSpace(q.Brand))
}

// CityFiltered reports whether the query is scoped to a city. City-scoped
// queries never receive the fallback catalog.
func (q QueryContext) CityFiltered() bool {
	return strings.TrimSpace(q.City) != ""
}
