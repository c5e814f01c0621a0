package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

// fakeDesignStore is an in-memory DesignStore.
type fakeDesignStore struct {
	mu       sync.Mutex
	designs  map[string]*models.Design
	nextID   int
	writes   int
	listErr  error
	getDelay time.Duration
}

func newFakeDesignStore() *fakeDesignStore {
	return &fakeDesignStore{designs: map[string]*models.Design{}}
}

// seed adds a design directly, bypassing sync.
func (f *fakeDesignStore) seed(designNo string, active bool, fields models.DesignFields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.designs[designNo] = &models.Design{
		ID: f.nextID, DesignNo: designNo, IsActive: active,
		Category: fields.Category, Subcategory: fields.Subcategory, Collection: fields.Collection,
		Gender: fields.Gender, ProductType: fields.ProductType, Description: fields.Description,
		ImageBasePath: fields.ImageBasePath,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, f.nextID, 0, time.UTC),
	}
}

func (f *fakeDesignStore) GetByDesignNo(ctx context.Context, designNo string) (*models.Design, error) {
	if f.getDelay > 0 {
		time.Sleep(f.getDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.designs[designNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDesignStore) Upsert(ctx context.Context, designNo string, fl models.DesignFields, activeOnCreate bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	d, ok := f.designs[designNo]
	if !ok {
		f.nextID++
		d = &models.Design{ID: f.nextID, DesignNo: designNo, IsActive: activeOnCreate, CreatedAt: time.Now()}
		f.designs[designNo] = d
	}
	d.Category, d.Subcategory, d.Collection = fl.Category, fl.Subcategory, fl.Collection
	d.Gender, d.ProductType, d.Description, d.ImageBasePath = fl.Gender, fl.ProductType, fl.Description, fl.ImageBasePath
	d.LastSyncedAt = time.Now()
	return !ok, nil
}

func (f *fakeDesignStore) SetActive(ctx context.Context, designNo string, active bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.designs[designNo]
	if !ok {
		return false, nil
	}
	d.IsActive = active
	return true, nil
}

func (f *fakeDesignStore) Toggle(ctx context.Context, designNo string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.designs[designNo]
	if !ok {
		return false, false, nil
	}
	d.IsActive = !d.IsActive
	return d.IsActive, true, nil
}

func (f *fakeDesignStore) ListActive(ctx context.Context) ([]models.Design, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Design
	for _, d := range f.designs {
		if d.IsActive {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DesignNo < out[j].DesignNo })
	return out, nil
}

func (f *fakeDesignStore) List(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Design
	for _, d := range f.designs {
		if filter.IsActive != nil && d.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DesignNo < out[j].DesignNo })
	return out, len(out), nil
}

func (f *fakeDesignStore) active(designNo string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.designs[designNo]
	return ok && d.IsActive
}

// fakeFeed serves canned feed results.
type fakeFeed struct {
	mu        sync.Mutex
	stock     []devjewels.StockRecord
	designs   []devjewels.DesignRecord
	rejected  []*devjewels.RecordError
	stockErr  error
	designErr error
	calls     int
}

func (f *fakeFeed) FetchStock(ctx context.Context) (*devjewels.StockFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.stockErr != nil {
		return nil, f.stockErr
	}
	return &devjewels.StockFeed{Records: append([]devjewels.StockRecord(nil), f.stock...)}, nil
}

func (f *fakeFeed) FetchDesigns(ctx context.Context) (*devjewels.DesignFeed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.designErr != nil {
		return nil, f.designErr
	}
	return &devjewels.DesignFeed{
		Records:  append([]devjewels.DesignRecord(nil), f.designs...),
		Rejected: f.rejected,
	}, nil
}

func (f *fakeFeed) setStockErr(err error) {
	f.mu.Lock()
	f.stockErr = err
	f.mu.Unlock()
}

// fakeCache counts invalidations and serves a fixed or built snapshot.
type fakeCache struct {
	mu          sync.Mutex
	products    []models.Product
	build       func(ctx context.Context) []models.Product
	invalidated int
	invErr      error
}

func (c *fakeCache) Get(ctx context.Context) []models.Product {
	if c.build != nil {
		return c.build(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return c.invErr
}

func (c *fakeCache) invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated
}

// recordingNotifier captures published events.
type recordingNotifier struct {
	mu      sync.Mutex
	toggled []string
	synced  []models.SyncStats
	flushed int
}

func (n *recordingNotifier) NotifyDesignToggled(designNo string, active bool, actor string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toggled = append(n.toggled, designNo)
}

func (n *recordingNotifier) NotifyDesignsSynced(stats models.SyncStats) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.synced = append(n.synced, stats)
}

func (n *recordingNotifier) NotifyCatalogInvalidated(actor string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flushed++
}

func strPtr(s string) *string { return &s }

func stockRecord(designNo, jobNo string, memo bool, amount string) devjewels.StockRecord {
	rec := devjewels.StockRecord{DesignNo: designNo, JobNo: jobNo, Memo: memo, RawAmount: amount}
	if d, err := decimal.NewFromString(amount); err == nil {
		rec.TotalAmount = d
		rec.AmountValid = true
	}
	return rec
}
