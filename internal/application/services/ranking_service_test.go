package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearbuy/nearbuy-gateway/internal/domain/entities"
)

func product(id, name, brand string, price *float64) entities.ResultItem {
	return entities.ProductItem(entities.ProductResult{
		ProductID: id,
		Name:      name,
		Brand:     brand,
		Price:     price,
	})
}

func floatPtr(v float64) *float64 {
	return &v
}

func names(items []entities.ResultItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.DisplayName()
	}
	return out
}

func TestRankDeduplicatesKeepingLastOccurrence(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "Old Name", "", nil),
		product("p2", "Other", "", nil),
		product("p1", "New Name", "", nil),
	}, entities.QueryContext{})

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"New Name", "Other"}, names(ranked))
}

func TestRankKeepsKeylessItemsUnconditionally(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("", "Loose A", "", nil),
		product("", "Loose B", "", nil),
	}, entities.QueryContext{})

	assert.Len(t, ranked, 2)
}

func TestRankExactOutranksPrefixOutranksSubstring(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "Running Shoe", "", nil),
		product("p2", "Shoes", "", nil),
		product("p3", "Shoe", "", nil),
	}, entities.QueryContext{Term: "Shoe", Sort: entities.SortRelevance})

	require.Len(t, ranked, 3)
	assert.Equal(t, "Shoe", ranked[0].DisplayName())
	assert.Equal(t, 5, ranked[0].Score)
	// "Shoes" is a prefix match (3), "Running Shoe" only a substring (1)
	assert.Equal(t, []string{"Shoe", "Shoes", "Running Shoe"}, names(ranked))
	assert.Equal(t, 3, ranked[1].Score)
	assert.Equal(t, 1, ranked[2].Score)
}

func TestRankBrandBonusStacksWithNameScore(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "Apple Watch", "Apple", nil),
		product("p2", "Apple", "", nil),
	}, entities.QueryContext{Term: "apple"})

	// prefix (3) + brand (2) ties exact (5); input order breaks the tie
	require.Len(t, ranked, 2)
	assert.Equal(t, 5, ranked[0].Score)
	assert.Equal(t, 5, ranked[1].Score)
	assert.Equal(t, "Apple Watch", ranked[0].DisplayName())
}

func TestRankCityBonusAppliesWithoutQueryTerm(t *testing.T) {
	svc := NewRankingService()

	local := entities.ProductItem(entities.ProductResult{ProductID: "p1", Name: "Milk", City: "Bhopal"})
	remote := entities.ProductItem(entities.ProductResult{ProductID: "p2", Name: "Milk", City: "Indore"})

	ranked := svc.Rank([]entities.ResultItem{remote, local}, entities.QueryContext{City: "bhopal"})

	require.Len(t, ranked, 2)
	assert.Equal(t, "Bhopal", ranked[0].Product.City)
	assert.Equal(t, 1, ranked[0].Score)
	assert.Equal(t, 0, ranked[1].Score)
}

func TestRankBrandFilterDropsNonMatching(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "iPhone 14", "Apple", nil),
		product("p2", "Galaxy S23", "Samsung", nil),
		entities.ShopItem(entities.ShopResult{ShopID: "s1", Name: "Brandless Shop"}),
	}, entities.QueryContext{Brand: "sam"})

	require.Len(t, ranked, 1)
	assert.Equal(t, "Galaxy S23", ranked[0].DisplayName())
}

func TestRankPriceBoundsSkipUnknownPrices(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "Cheap", "", floatPtr(5)),
		product("p2", "Mystery", "", nil),
		product("p3", "Mid", "", floatPtr(50)),
		product("p4", "Pricey", "", floatPtr(500)),
	}, entities.QueryContext{MinPrice: floatPtr(10), MaxPrice: floatPtr(100)})

	assert.Equal(t, []string{"Mystery", "Mid"}, names(ranked))
}

func TestRankPriceSortPlacesUnknownLast(t *testing.T) {
	svc := NewRankingService()

	items := []entities.ResultItem{
		product("p1", "Ten", "", floatPtr(10)),
		product("p2", "Unknown", "", nil),
		product("p3", "Five", "", floatPtr(5)),
	}

	asc := svc.Rank(items, entities.QueryContext{Sort: entities.SortPriceAsc})
	assert.Equal(t, []string{"Five", "Ten", "Unknown"}, names(asc))

	desc := svc.Rank(items, entities.QueryContext{Sort: entities.SortPriceDesc})
	assert.Equal(t, []string{"Ten", "Five", "Unknown"}, names(desc))
}

func TestRankNameSortIsCaseInsensitive(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "banana", "", nil),
		product("p2", "Apple", "", nil),
		product("p3", "cherry", "", nil),
	}, entities.QueryContext{Sort: entities.SortName})

	assert.Equal(t, []string{"Apple", "banana", "cherry"}, names(ranked))
}

func TestRankRelevanceTiesPreserveInputOrder(t *testing.T) {
	svc := NewRankingService()

	ranked := svc.Rank([]entities.ResultItem{
		product("p1", "Alpha", "", nil),
		product("p2", "Beta", "", nil),
		product("p3", "Gamma", "", nil),
	}, entities.QueryContext{Sort: entities.SortRelevance})

	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, names(ranked))
}

func TestFallbackCatalogs(t *testing.T) {
	svc := NewRankingService()

	products := svc.FallbackProducts()
	require.Len(t, products, 5)
	assert.Equal(t, "iPhone 14", products[0].DisplayName())
	assert.Equal(t, "Apple", products[0].Brand())

	shops := svc.FallbackShops()
	require.Len(t, shops, 3)
	assert.Equal(t, "DB Mall Electronics", shops[0].DisplayName())
	assert.Equal(t, "Bhopal", shops[0].City())
}
