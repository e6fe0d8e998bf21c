package services

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

// fallbackProducts is the fixed catalog substituted when a non-city product
// or category search comes back empty.
var fallbackProducts = []entities.ProductResult{
	{ProductID: "10001", Name: "iPhone 14", Brand: "Apple"},
	{ProductID: "10002", Name: "Samsung Galaxy S23", Brand: "Samsung"},
	{ProductID: "10003", Name: "Dell Inspiron 15", Brand: "Dell"},
	{ProductID: "10004", Name: "Redmi Note 12", Brand: "Xiaomi"},
	{ProductID: "10005", Name: "Amul Milk 1L", Brand: "Amul"},
}

// fallbackShops is the fixed catalog substituted when a non-city shop search
// comes back empty.
var fallbackShops = []entities.ShopResult{
	{ShopID: "20001", Name: "DB Mall Electronics", City: "Bhopal", Area: "Arera Hills"},
	{ShopID: "20002", Name: "New Market Grocers", City: "Bhopal", Area: "New Market"},
	{ShopID: "20003", Name: "MP Nagar Tech Hub", City: "Bhopal", Area: "MP Nagar Zone 1"},
}

// RankingService turns a raw, possibly duplicate-laden result list into a
// deduplicated, filtered, deterministically ordered sequence for display.
type RankingService struct{}

// NewRankingService creates a new ranking service
func NewRankingService() *RankingService {
	return &RankingService{}
}

// Rank runs the full pipeline: dedupe, score, filter, sort.
func (s *RankingService) Rank(items []entities.ResultItem, q entities.QueryContext) []entities.ResultItem {
	out := dedupe(items)

	term := q.NormalizedTerm()
	city := q.NormalizedCity()
	for i := range out {
		out[i].Score = scoreItem(out[i], term, city)
	}

	out = filterItems(out, q)
	sortItems(out, q.Sort)
	return out
}

// FallbackProducts returns the fixed product catalog as result items.
func (s *RankingService) FallbackProducts() []entities.ResultItem {
	items := make([]entities.ResultItem, len(fallbackProducts))
	for i, p := range fallbackProducts {
		items[i] = entities.ProductItem(p)
	}
	return items
}

// FallbackShops returns the fixed shop catalog as result items.
func (s *RankingService) FallbackShops() []entities.ResultItem {
	items := make([]entities.ResultItem, len(fallbackShops))
	for i, sh := range fallbackShops {
		items[i] = entities.ShopItem(sh)
	}
	return items
}

// dedupe collapses items sharing an identifying key. The first occurrence
// keeps its position, the last occurrence supplies the value. Items with no
// key are retained unconditionally.
func dedupe(items []entities.ResultItem) []entities.ResultItem {
	out := make([]entities.ResultItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		key := item.Key()
		if key == "" {
			out = append(out, item)
			continue
		}
		if idx, ok := seen[key]; ok {
			out[idx] = item
			continue
		}
		seen[key] = len(out)
		out = append(out, item)
	}
	return out
}

// scoreItem computes the relevance score. Name matches are exclusive tiers;
// the brand bonus requires a term; the city bonus applies whenever the query
// carries a city filter, term or not.
func scoreItem(item entities.ResultItem, term, city string) int {
	score := 0
	if term != "" {
		name := strings.ToLower(item.DisplayName())
		switch {
		case name == term:
			score += 5
		case strings.HasPrefix(name, term):
			score += 3
		case strings.Contains(name, term):
			score += 1
		}
		if brand := strings.ToLower(item.Brand()); brand != "" && brand == term {
			score += 2
		}
	}
	if city != "" && strings.ToLower(item.City()) == city {
		score++
	}
	return score
}

// filterItems applies the brand substring filter and price bounds. Items with
// unknown price are never excluded by price bounds.
func filterItems(items []entities.ResultItem, q entities.QueryContext) []entities.ResultItem {
	brand := q.NormalizedBrand()
	if brand == "" && q.MinPrice == nil && q.MaxPrice == nil {
		return items
	}

	out := items[:0]
	for _, item := range items {
		if brand != "" && !strings.Contains(strings.ToLower(item.Brand()), brand) {
			continue
		}
		if price := item.Price(); price != nil {
			if q.MinPrice != nil && *price < *q.MinPrice {
				continue
			}
			if q.MaxPrice != nil && *price > *q.MaxPrice {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// sortItems orders items in place. All sorts are stable so ties preserve
// input order.
func sortItems(items []entities.ResultItem, mode entities.SortMode) {
	switch mode {
	case entities.SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return priceOr(items[i], math.Inf(1)) < priceOr(items[j], math.Inf(1))
		})
	case entities.SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return priceOr(items[i], math.Inf(-1)) > priceOr(items[j], math.Inf(-1))
		})
	case entities.SortName:
		coll := collate.New(language.Und, collate.IgnoreCase)
		sort.SliceStable(items, func(i, j int) bool {
			return coll.CompareString(items[i].DisplayName(), items[j].DisplayName()) < 0
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Score > items[j].Score
		})
	}
}

func priceOr(item entities.ResultItem, unknown float64) float64 {
	if p := item.Price(); p != nil {
		return *p
	}
	return unknown
}
