package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/utils"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

func product(designNo, category, subcategory string, inStock []string, memo []string) models.Product {
	p := models.Product{DesignNo: designNo, Category: category, Subcategory: subcategory, Status: models.StatusNotInStock}
	for _, j := range inStock {
		p.InStockJobs = append(p.InStockJobs, models.StockJob{JobNo: j, DesignNo: designNo})
	}
	for _, j := range memo {
		p.MemoJobs = append(p.MemoJobs, models.StockJob{JobNo: j, DesignNo: designNo, MemoFlag: true})
	}
	p.PieceCount = len(p.InStockJobs)
	if p.PieceCount > 0 {
		p.Status = models.StatusInStock
	}
	return p
}

func newQueryService(products ...models.Product) *CatalogQueryService {
	return NewCatalogQueryService(&fakeCache{products: products}, NewDesignRegistry(newFakeDesignStore(), true), 100)
}

func designNos(items []models.Product) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.DesignNo)
	}
	return out
}

func TestSearch_JobNumberShortCircuitIgnoresFilters(t *testing.T) {
	// Build the view through the sync engine to search the real merge output.
	svc, store, feed, _, _ := newSyncFixture(true)
	store.seed("D1", true, models.DesignFields{})
	feed.designs = []devjewels.DesignRecord{{DesignNo: "D1", Category: strPtr("Ring")}}
	feed.stock = []devjewels.StockRecord{stockRecord("D1", "J1", false, "100")}

	q := NewCatalogQueryService(&fakeCache{build: svc.BuildProductView}, svc.registry, 100)
	res := q.Search(context.Background(), SearchParams{
		Query:   "J1",
		Filters: CatalogFilters{Category: "Necklace"},
		Status:  "notinstock",
		Page:    1, PageSize: 20,
	})

	require.Equal(t, 1, res.TotalCount)
	assert.Equal(t, "D1", res.Items[0].DesignNo)
	assert.False(t, res.HasMore)
}

func TestSearch_JobMatchIsCaseInsensitiveSubstringOverMemoJobs(t *testing.T) {
	q := newQueryService(
		product("D1", "Rings", "", []string{"JX-100"}, nil),
		product("D2", "Rings", "", nil, []string{"jx-200"}),
		product("D3", "Rings", "", []string{"K-1"}, nil),
	)
	res := q.Search(context.Background(), SearchParams{Query: "Jx-", Page: 1, PageSize: 10})
	assert.Equal(t, []string{"D1", "D2"}, designNos(res.Items))
}

func TestSearch_TokensMustAllMatch(t *testing.T) {
	q := newQueryService(
		product("R100", "Rings", "Solitaire", nil, nil),
		product("R200", "Rings", "Bands", nil, nil),
		product("P100", "Pendants", "Solitaire", nil, nil),
	)

	res := q.Search(context.Background(), SearchParams{Query: "rings solitaire", Page: 1, PageSize: 10})
	assert.Equal(t, []string{"R100"}, designNos(res.Items))

	res = q.Search(context.Background(), SearchParams{Query: "100", Page: 1, PageSize: 10})
	assert.Equal(t, []string{"P100", "R100"}, designNos(res.Items))

	res = q.Search(context.Background(), SearchParams{Query: "bracelet", Page: 1, PageSize: 10})
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.TotalCount)
}

func TestSearch_FiltersAndStatus(t *testing.T) {
	a := product("A", "Rings", "Bands", []string{"J1"}, nil)
	a.Gender, a.Collection, a.ProductType = "Women", "Bridal", "Ring"
	b := product("B", "rings", "Bands", nil, []string{"J2"})
	b.Gender = "Men"
	c := product("C", "Pendants", "", []string{"J3"}, nil)
	q := newQueryService(c, b, a)

	tests := []struct {
		name    string
		filters CatalogFilters
		status  string
		want    []string
	}{
		{"no filters", CatalogFilters{}, "", []string{"A", "B", "C"}},
		{"all is ignored", CatalogFilters{Category: "all", Gender: "ALL"}, "all", []string{"A", "B", "C"}},
		{"category case-insensitive", CatalogFilters{Category: "RINGS"}, "", []string{"A", "B"}},
		{"filters combine", CatalogFilters{Category: "rings", Gender: "women"}, "", []string{"A"}},
		{"collection and product type", CatalogFilters{Collection: "bridal", ProductType: "ring"}, "", []string{"A"}},
		{"subcategory", CatalogFilters{Subcategory: "bands"}, "", []string{"A", "B"}},
		{"in stock", CatalogFilters{}, "instock", []string{"A", "C"}},
		{"in stock display form", CatalogFilters{}, "In Stock", []string{"A", "C"}},
		{"not in stock", CatalogFilters{}, "notinstock", []string{"B"}},
		{"status with filter", CatalogFilters{Category: "rings"}, "instock", []string{"A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := q.Search(context.Background(), SearchParams{Filters: tt.filters, Status: tt.status, Page: 1, PageSize: 50})
			assert.Equal(t, tt.want, designNos(res.Items))
			assert.Equal(t, len(tt.want), res.TotalCount)
		})
	}
}

func TestSearch_Sorting(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := product("A", "Rings", "", nil, nil)
	a.CreatedAt = base
	b := product("B", "Earrings", "", nil, nil)
	b.CreatedAt = base.Add(2 * time.Hour)
	c := product("C", "Earrings", "", nil, nil)
	c.CreatedAt = base.Add(time.Hour)
	q := newQueryService(c, a, b)

	res := q.Search(context.Background(), SearchParams{Page: 1, PageSize: 10})
	assert.Equal(t, []string{"A", "B", "C"}, designNos(res.Items))

	// Equal categories fall back to design_no order.
	res = q.Search(context.Background(), SearchParams{Sort: SortCategory, Page: 1, PageSize: 10})
	assert.Equal(t, []string{"B", "C", "A"}, designNos(res.Items))

	res = q.Search(context.Background(), SearchParams{Sort: SortNewest, Page: 1, PageSize: 10})
	assert.Equal(t, []string{"B", "C", "A"}, designNos(res.Items))
}

func TestSearch_DoesNotMutateCachedSnapshot(t *testing.T) {
	snapshot := []models.Product{
		product("B", "A-cat", "", nil, nil),
		product("A", "Z-cat", "", nil, nil),
	}
	q := NewCatalogQueryService(&fakeCache{products: snapshot}, nil, 100)

	q.Search(context.Background(), SearchParams{Page: 1, PageSize: 10})
	assert.Equal(t, "B", snapshot[0].DesignNo)
}

func TestSearch_PaginationCompleteness(t *testing.T) {
	var products []models.Product
	for i := 0; i < 47; i++ {
		cat := "Rings"
		if i%5 == 0 {
			cat = "Pendants"
		}
		products = append(products, product(fmt.Sprintf("D%03d", i), cat, "", nil, nil))
	}
	q := newQueryService(products...)

	for _, size := range []int{1, 7, 10, 38, 100} {
		t.Run(fmt.Sprintf("page size %d", size), func(t *testing.T) {
			params := SearchParams{Filters: CatalogFilters{Category: "rings"}, PageSize: size, Page: 1}
			seen := map[string]bool{}
			var collected, total int
			for {
				res := q.Search(context.Background(), params)
				total = res.TotalCount
				for _, p := range res.Items {
					assert.False(t, seen[p.DesignNo], "duplicate %s", p.DesignNo)
					seen[p.DesignNo] = true
					collected++
				}
				if !res.HasMore {
					break
				}
				params.Page++
			}
			assert.Equal(t, total, collected)
			assert.Equal(t, 37, total)
		})
	}
}

func TestSearch_PageClamping(t *testing.T) {
	var products []models.Product
	for i := 0; i < 150; i++ {
		products = append(products, product(fmt.Sprintf("D%03d", i), "Rings", "", nil, nil))
	}
	q := newQueryService(products...)

	res := q.Search(context.Background(), SearchParams{Page: 0, PageSize: 0})
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, 1, res.PageSize)
	assert.Len(t, res.Items, 1)
	assert.True(t, res.HasMore)

	res = q.Search(context.Background(), SearchParams{Page: 1, PageSize: 500})
	assert.Equal(t, 100, res.PageSize)
	assert.Len(t, res.Items, 100)

	res = q.Search(context.Background(), SearchParams{Page: 99, PageSize: 20})
	assert.Empty(t, res.Items)
	assert.False(t, res.HasMore)
	assert.Equal(t, 150, res.TotalCount)
}

func TestSearch_HugePageIsEmpty(t *testing.T) {
	q := newQueryService(
		product("D1", "Rings", "", nil, nil),
		product("D2", "Rings", "", nil, nil),
	)

	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"page 1<<62", 1 << 62, 4},
		{"max int page", math.MaxInt, 4},
		{"max int page and size", math.MaxInt, math.MaxInt},
		{"first page past the end", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res SearchResult
			require.NotPanics(t, func() {
				res = q.Search(context.Background(), SearchParams{Page: tt.page, PageSize: tt.pageSize})
			})
			assert.Empty(t, res.Items)
			assert.NotNil(t, res.Items)
			assert.False(t, res.HasMore)
			assert.Equal(t, 2, res.TotalCount)
			assert.Equal(t, tt.page, res.Page)
		})
	}
}

func TestProductAndJobLookup(t *testing.T) {
	q := newQueryService(
		product("D1", "Rings", "", []string{"J1"}, []string{"M1"}),
	)
	ctx := context.Background()

	p, err := q.ProductByDesign(ctx, "D1")
	require.NoError(t, err)
	assert.Equal(t, "Rings", p.Category)

	_, err = q.ProductByDesign(ctx, "NOPE")
	assert.True(t, errors.Is(err, utils.ErrProductNotFound))

	job, err := q.JobByNumber(ctx, "J1")
	require.NoError(t, err)
	assert.False(t, job.OnMemo)
	assert.Equal(t, "D1", job.DesignNo)

	job, err = q.JobByNumber(ctx, "M1")
	require.NoError(t, err)
	assert.True(t, job.OnMemo)

	_, err = q.JobByNumber(ctx, "X")
	assert.True(t, errors.Is(err, utils.ErrJobNotFound))
}

func TestFilterOptions(t *testing.T) {
	store := newFakeDesignStore()
	store.seed("D1", true, models.DesignFields{Category: "Rings", Gender: "Women", Collection: "Bridal"})
	store.seed("D2", true, models.DesignFields{Category: "Earrings", Gender: "Women", ProductType: "Stud"})
	store.seed("D3", false, models.DesignFields{Category: "Hidden", Subcategory: "Secret"})
	store.seed("D4", true, models.DesignFields{Category: "Rings", Subcategory: "Bands"})

	q := NewCatalogQueryService(&fakeCache{}, NewDesignRegistry(store, true), 100)
	opts, err := q.FilterOptions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Earrings", "Rings"}, opts.Categories)
	assert.Equal(t, []string{"Bands"}, opts.Subcategories)
	assert.Equal(t, []string{"Women"}, opts.Genders)
	assert.Equal(t, []string{"Bridal"}, opts.Collections)
	assert.Equal(t, []string{"Stud"}, opts.ProductTypes)
}
