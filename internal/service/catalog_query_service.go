package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/GTDGit/jewel_catalog/internal/cache"
	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// Sort keys accepted by Search.
const (
	SortDesignNo = "design_no"
	SortCategory = "category"
	SortNewest   = "newest"
)

const (
	// DefaultPageSize is used by callers when no page size was requested.
	DefaultPageSize = 20
	defaultMaxPage  = 100
	filterAll       = "all"
)

// CatalogFilters are exact, case-insensitive attribute filters. Empty or "all" is ignored.
type CatalogFilters struct {
	Category    string
	Subcategory string
	Collection  string
	Gender      string
	ProductType string
}

// SearchParams describes a catalog search.
type SearchParams struct {
	Query    string
	Filters  CatalogFilters
	Status   string
	Page     int
	PageSize int
	Sort     string
}

// SearchResult is one page of matching products.
type SearchResult struct {
	Items      []models.Product `json:"items"`
	HasMore    bool             `json:"hasMore"`
	TotalCount int              `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
}

// JobLookup is a single job located in the catalog.
type JobLookup struct {
	Job      models.StockJob `json:"job"`
	DesignNo string          `json:"designNo"`
	OnMemo   bool            `json:"onMemo"`
}

// CatalogQueryService answers read queries over the cached product view.
type CatalogQueryService struct {
	cache       cache.CatalogCache
	registry    *DesignRegistry
	maxPageSize int
}

// NewCatalogQueryService constructs a CatalogQueryService.
func NewCatalogQueryService(c cache.CatalogCache, registry *DesignRegistry, maxPageSize int) *CatalogQueryService {
	if maxPageSize <= 0 {
		maxPageSize = defaultMaxPage
	}
	return &CatalogQueryService{cache: c, registry: registry, maxPageSize: maxPageSize}
}

// Search filters, sorts and paginates the product view.
// A query matching part of any job number selects those products only and
// bypasses attribute and status filters.
func (s *CatalogQueryService) Search(ctx context.Context, p SearchParams) SearchResult {
	products := s.cache.Get(ctx)
	query := strings.ToLower(strings.TrimSpace(p.Query))

	var matched []models.Product
	jobHit := false
	if query != "" {
		matched = matchJobNumber(products, query)
		jobHit = len(matched) > 0
		if !jobHit {
			matched = matchTokens(products, strings.Fields(query))
		}
	} else {
		matched = make([]models.Product, len(products))
		copy(matched, products)
	}

	if !jobHit {
		matched = applyFilters(matched, p.Filters)
		matched = applyStatus(matched, p.Status)
	}

	sortProducts(matched, p.Sort)

	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}

	// Compare before multiplying so a huge page cannot overflow the offset.
	total := len(matched)
	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := start + size
	if end > total {
		end = total
	}

	items := matched[start:end]
	if items == nil {
		items = []models.Product{}
	}
	return SearchResult{
		Items:      items,
		HasMore:    start+size < total,
		TotalCount: total,
		Page:       page,
		PageSize:   size,
	}
}

// ProductByDesign returns the merged product for an active design.
func (s *CatalogQueryService) ProductByDesign(ctx context.Context, designNo string) (*models.Product, error) {
	for _, p := range s.cache.Get(ctx) {
		if p.DesignNo == designNo {
			return &p, nil
		}
	}
	return nil, utils.ErrProductNotFound
}

// JobByNumber locates a job across in-stock and memo jobs.
func (s *CatalogQueryService) JobByNumber(ctx context.Context, jobNo string) (*JobLookup, error) {
	for _, p := range s.cache.Get(ctx) {
		for _, j := range p.InStockJobs {
			if j.JobNo == jobNo {
				return &JobLookup{Job: j, DesignNo: p.DesignNo}, nil
			}
		}
		for _, j := range p.MemoJobs {
			if j.JobNo == jobNo {
				return &JobLookup{Job: j, DesignNo: p.DesignNo, OnMemo: true}, nil
			}
		}
	}
	return nil, utils.ErrJobNotFound
}

// FilterOptions lists the distinct non-empty attribute values of active designs.
func (s *CatalogQueryService) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	active, err := s.registry.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter options: %w", err)
	}

	var cats, subs, genders, cols, types distinct
	for _, d := range active {
		cats.add(d.Category)
		subs.add(d.Subcategory)
		genders.add(d.Gender)
		cols.add(d.Collection)
		types.add(d.ProductType)
	}
	return &models.FilterOptions{
		Categories:    cats.sorted(),
		Subcategories: subs.sorted(),
		Genders:       genders.sorted(),
		Collections:   cols.sorted(),
		ProductTypes:  types.sorted(),
	}, nil
}

func matchJobNumber(products []models.Product, query string) []models.Product {
	var out []models.Product
	for _, p := range products {
		if hasJobLike(p.InStockJobs, query) || hasJobLike(p.MemoJobs, query) {
			out = append(out, p)
		}
	}
	return out
}

func hasJobLike(jobs []models.StockJob, query string) bool {
	for _, j := range jobs {
		if strings.Contains(strings.ToLower(j.JobNo), query) {
			return true
		}
	}
	return false
}

// matchTokens keeps products where every token appears in the design number, category or subcategory.
func matchTokens(products []models.Product, tokens []string) []models.Product {
	out := make([]models.Product, 0)
	for _, p := range products {
		designNo := strings.ToLower(p.DesignNo)
		category := strings.ToLower(p.Category)
		subcategory := strings.ToLower(p.Subcategory)
		ok := true
		for _, t := range tokens {
			if !strings.Contains(designNo, t) && !strings.Contains(category, t) && !strings.Contains(subcategory, t) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}

func applyFilters(products []models.Product, f CatalogFilters) []models.Product {
	checks := []struct {
		want string
		get  func(*models.Product) string
	}{
		{f.Category, func(p *models.Product) string { return p.Category }},
		{f.Gender, func(p *models.Product) string { return p.Gender }},
		{f.Collection, func(p *models.Product) string { return p.Collection }},
		{f.Subcategory, func(p *models.Product) string { return p.Subcategory }},
		{f.ProductType, func(p *models.Product) string { return p.ProductType }},
	}

	out := products[:0:0]
	for i := range products {
		keep := true
		for _, c := range checks {
			want := strings.TrimSpace(c.want)
			if want == "" || strings.EqualFold(want, filterAll) {
				continue
			}
			if !strings.EqualFold(c.get(&products[i]), want) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, products[i])
		}
	}
	return out
}

func applyStatus(products []models.Product, status string) []models.Product {
	var wantStock bool
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(status), " ", "")) {
	case "instock":
		wantStock = true
	case "notinstock":
		wantStock = false
	default:
		return products
	}

	out := products[:0:0]
	for i := range products {
		if products[i].HasStock() == wantStock {
			out = append(out, products[i])
		}
	}
	return out
}

// sortProducts orders by the requested key with design number as the tiebreak.
func sortProducts(products []models.Product, key string) {
	var less func(a, b *models.Product) bool
	switch key {
	case SortCategory:
		less = func(a, b *models.Product) bool {
			if a.Category != b.Category {
				return a.Category < b.Category
			}
			return a.DesignNo < b.DesignNo
		}
	case SortNewest:
		less = func(a, b *models.Product) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.DesignNo < b.DesignNo
		}
	default:
		less = func(a, b *models.Product) bool { return a.DesignNo < b.DesignNo }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(&products[i], &products[j]) })
}

type distinct map[string]struct{}

func (d *distinct) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if *d == nil {
		*d = make(map[string]struct{})
	}
	(*d)[v] = struct{}{}
}

func (d distinct) sorted() []string {
	out := make([]string, 0, len(d))
	for v := range d {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
