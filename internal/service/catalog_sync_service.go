package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GTDGit/jewel_catalog/internal/cache"
	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/sse"
	"github.com/GTDGit/jewel_catalog/internal/utils"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

const (
	unknownCategory = "Unknown"
	zeroPrice       = "0.00"
)

// FeedClient fetches the upstream feeds. Implemented by devjewels.Client.
type FeedClient interface {
	FetchStock(ctx context.Context) (*devjewels.StockFeed, error)
	FetchDesigns(ctx context.Context) (*devjewels.DesignFeed, error)
}

// CatalogSyncConfig holds pricing and image defaults for the merged view.
type CatalogSyncConfig struct {
	DiscountPercent float64
	ImageBaseURL    string
}

// CatalogSyncService synchronizes the design registry and builds the merged product view.
type CatalogSyncService struct {
	feed       FeedClient
	registry   *DesignRegistry
	notifier   sse.CatalogNotifier
	multiplier decimal.Decimal
	imageBase  string

	syncing atomic.Bool

	// cache is wired after construction since the cache builds through this service.
	cache cache.CatalogCache

	mu       sync.RWMutex
	lastGood []models.Product
	hasGood  bool
}

// NewCatalogSyncService constructs a CatalogSyncService.
func NewCatalogSyncService(feed FeedClient, registry *DesignRegistry, notifier sse.CatalogNotifier, cfg CatalogSyncConfig) *CatalogSyncService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	hundred := decimal.NewFromInt(100)
	return &CatalogSyncService{
		feed:       feed,
		registry:   registry,
		notifier:   notifier,
		multiplier: hundred.Sub(decimal.NewFromFloat(cfg.DiscountPercent)).Div(hundred),
		imageBase:  strings.TrimSuffix(cfg.ImageBaseURL, "/"),
	}
}

// SetCatalogCache wires the cache invalidated after a sync that changed designs.
func (s *CatalogSyncService) SetCatalogCache(c cache.CatalogCache) {
	s.cache = c
}

// SynchronizeDesigns pulls the design feed into the registry. A feed failure
// aborts the run before anything is written. Per-record failures are counted
// and the run continues. Only one run is allowed at a time.
func (s *CatalogSyncService) SynchronizeDesigns(ctx context.Context, forceUpdate bool) (models.SyncStats, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return models.SyncStats{}, utils.ErrSyncInProgress
	}
	defer s.syncing.Store(false)
	start := time.Now()

	feed, err := s.feed.FetchDesigns(ctx)
	if err != nil {
		log.Error().Err(err).Msg("design sync aborted: design feed unavailable")
		return models.SyncStats{}, fmt.Errorf("%w: %w", utils.ErrSyncFailed, err)
	}

	stats := models.SyncStats{Total: feed.Total()}
	for _, rej := range feed.Rejected {
		if errors.Is(rej, devjewels.ErrMissingDesignNo) {
			stats.Skipped++
		} else {
			stats.Failed++
		}
	}

	for _, rec := range feed.Records {
		res, err := s.registry.Upsert(ctx, rec.DesignNo, s.syncFields(rec), forceUpdate)
		if err != nil {
			if errors.Is(err, utils.ErrValidation) {
				stats.Skipped++
				continue
			}
			log.Error().Err(err).Str("design_no", rec.DesignNo).Msg("design upsert failed")
			stats.Failed++
			continue
		}
		switch res {
		case models.UpsertCreated:
			stats.Created++
		case models.UpsertUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	log.Info().
		Int("total", stats.Total).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Bool("force", forceUpdate).
		Dur("duration", time.Since(start)).
		Msg("design sync completed")

	if stats.Changed() {
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx); err != nil {
				log.Warn().Err(err).Msg("catalog cache invalidation after sync failed")
			}
		}
		s.notifier.NotifyDesignsSynced(stats)
	}
	return stats, nil
}

// syncFields maps a feed record to stored metadata. Absent feed fields become empty.
func (s *CatalogSyncService) syncFields(rec devjewels.DesignRecord) models.DesignFields {
	// Casers carry state and are not safe for concurrent use.
	titler := cases.Title(language.Und)
	return models.DesignFields{
		Category:      titler.String(strings.TrimSpace(deref(rec.Category))),
		Subcategory:   strings.TrimSpace(deref(rec.Subcategory)),
		Collection:    strings.TrimSpace(deref(rec.Collection)),
		Gender:        strings.TrimSpace(deref(rec.Gender)),
		ProductType:   strings.TrimSpace(deref(rec.ProductType)),
		Description:   strings.TrimSpace(deref(rec.Description)),
		ImageBasePath: s.imagePath(rec.DesignNo, deref(rec.ImagePath)),
	}
}

// BuildProductView fetches both feeds and merges them with the active designs.
// It never fails: on any upstream or registry error it returns the last good
// view, or an empty list when there is none.
func (s *CatalogSyncService) BuildProductView(ctx context.Context) []models.Product {
	var (
		stock   *devjewels.StockFeed
		designs *devjewels.DesignFeed
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stock, err = s.feed.FetchStock(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		designs, err = s.feed.FetchDesigns(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("feed unavailable, serving last good catalog")
		return s.fallback()
	}

	active, err := s.registry.ListActive(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("design registry unavailable, serving last good catalog")
		return s.fallback()
	}

	products := s.merge(stock.Records, designs.Records, active)

	s.mu.Lock()
	s.lastGood = products
	s.hasGood = true
	s.mu.Unlock()

	log.Debug().Int("products", len(products)).Int("stock_records", len(stock.Records)).Msg("catalog view built")
	return products
}

func (s *CatalogSyncService) fallback() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hasGood {
		return s.lastGood
	}
	return []models.Product{}
}

// merge joins stock jobs and design metadata onto the active designs, sorted by design number.
func (s *CatalogSyncService) merge(stock []devjewels.StockRecord, designs []devjewels.DesignRecord, active map[string]models.Design) []models.Product {
	feedMeta := make(map[string]devjewels.DesignRecord, len(designs))
	for _, d := range designs {
		feedMeta[d.DesignNo] = d
	}

	type jobs struct{ inStock, memo []models.StockJob }
	byDesign := make(map[string]*jobs)
	for _, rec := range stock {
		// Inactive designs are dropped before any pricing or grouping.
		if _, ok := active[rec.DesignNo]; !ok {
			continue
		}
		j := byDesign[rec.DesignNo]
		if j == nil {
			j = &jobs{}
			byDesign[rec.DesignNo] = j
		}
		job := s.stockJob(rec)
		if job.MemoFlag {
			j.memo = append(j.memo, job)
		} else {
			j.inStock = append(j.inStock, job)
		}
	}

	products := make([]models.Product, 0, len(active))
	for designNo, stored := range active {
		p := s.productMetadata(designNo, stored, feedMeta)
		p.InStockJobs = []models.StockJob{}
		p.MemoJobs = []models.StockJob{}
		if j := byDesign[designNo]; j != nil {
			if j.inStock != nil {
				p.InStockJobs = j.inStock
			}
			if j.memo != nil {
				p.MemoJobs = j.memo
			}
		}
		p.PieceCount = len(p.InStockJobs)
		p.Status = models.StatusNotInStock
		if p.PieceCount > 0 {
			p.Status = models.StatusInStock
		}
		products = append(products, p)
	}

	sort.Slice(products, func(i, k int) bool { return products[i].DesignNo < products[k].DesignNo })
	return products
}

// productMetadata applies feed, then stored row, then defaults.
func (s *CatalogSyncService) productMetadata(designNo string, stored models.Design, feedMeta map[string]devjewels.DesignRecord) models.Product {
	p := models.Product{
		DesignNo:      designNo,
		Category:      stored.Category,
		Subcategory:   stored.Subcategory,
		Collection:    stored.Collection,
		Gender:        stored.Gender,
		ProductType:   stored.ProductType,
		Description:   stored.Description,
		ImageBasePath: stored.ImageBasePath,
		CreatedAt:     stored.CreatedAt,
	}
	if rec, ok := feedMeta[designNo]; ok {
		override(&p.Category, rec.Category)
		override(&p.Subcategory, rec.Subcategory)
		override(&p.Collection, rec.Collection)
		override(&p.Gender, rec.Gender)
		override(&p.ProductType, rec.ProductType)
		override(&p.Description, rec.Description)
		if path := strings.TrimSpace(deref(rec.ImagePath)); path != "" {
			p.ImageBasePath = path
		}
	}
	if strings.TrimSpace(p.Category) == "" {
		p.Category = unknownCategory
	}
	p.ImageBasePath = s.imagePath(designNo, p.ImageBasePath)
	return p
}

func (s *CatalogSyncService) stockJob(rec devjewels.StockRecord) models.StockJob {
	price := zeroPrice
	if rec.AmountValid {
		price = rec.TotalAmount.Mul(s.multiplier).StringFixed(2)
	}
	return models.StockJob{
		JobNo:           rec.JobNo,
		DesignNo:        rec.DesignNo,
		MetalType:       rec.MetalType,
		MetalQuality:    rec.MetalQuality,
		Gwt:             rec.Gwt,
		Nwt:             rec.Nwt,
		Dwt:             rec.Dwt,
		Size:            rec.Size,
		MemoFlag:        rec.Memo,
		TotalAmount:     rec.TotalAmount,
		AmountValid:     rec.AmountValid,
		DiscountedPrice: price,
	}
}

func (s *CatalogSyncService) imagePath(designNo, path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	return s.imageBase + "/" + designNo
}

func override(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
