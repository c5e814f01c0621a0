package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/repository"
	"github.com/GTDGit/jewel_catalog/pkg/devjewels"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope mirrors utils.Response for decoding.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
	Meta struct {
		Pagination *struct {
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalItems int `json:"totalItems"`
		} `json:"pagination"`
	} `json:"meta"`
}

func perform(t *testing.T, r http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

// memDesignStore is an in-memory service.DesignStore.
type memDesignStore struct {
	mu      sync.Mutex
	designs map[string]*models.Design
	failAll error
}

func newMemDesignStore(designs ...models.Design) *memDesignStore {
	s := &memDesignStore{designs: map[string]*models.Design{}}
	for i := range designs {
		d := designs[i]
		s.designs[d.DesignNo] = &d
	}
	return s
}

func (s *memDesignStore) GetByDesignNo(ctx context.Context, designNo string) (*models.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[designNo]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (s *memDesignStore) Upsert(ctx context.Context, designNo string, f models.DesignFields, activeOnCreate bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[designNo]
	if !ok {
		d = &models.Design{DesignNo: designNo, IsActive: activeOnCreate}
		s.designs[designNo] = d
	}
	d.Category, d.Subcategory, d.Collection = f.Category, f.Subcategory, f.Collection
	d.Gender, d.ProductType, d.Description, d.ImageBasePath = f.Gender, f.ProductType, f.Description, f.ImageBasePath
	return !ok, nil
}

func (s *memDesignStore) SetActive(ctx context.Context, designNo string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[designNo]
	if ok {
		d.IsActive = active
	}
	return ok, nil
}

func (s *memDesignStore) Toggle(ctx context.Context, designNo string) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.designs[designNo]
	if !ok {
		return false, false, nil
	}
	d.IsActive = !d.IsActive
	return d.IsActive, true, nil
}

func (s *memDesignStore) ListActive(ctx context.Context) ([]models.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, s.failAll
	}
	var out []models.Design
	for _, d := range s.designs {
		if d.IsActive {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DesignNo < out[j].DesignNo })
	return out, nil
}

func (s *memDesignStore) List(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll != nil {
		return nil, 0, s.failAll
	}
	var out []models.Design
	for _, d := range s.designs {
		if filter.IsActive != nil && d.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DesignNo < out[j].DesignNo })
	return out, len(out), nil
}

// staticCache serves a fixed product view and counts invalidations.
type staticCache struct {
	mu          sync.Mutex
	products    []models.Product
	invalidated int
}

func (c *staticCache) Get(ctx context.Context) []models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products
}

func (c *staticCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return nil
}

// stubFeed returns canned design records.
type stubFeed struct {
	designs []devjewels.DesignRecord
	err     error
}

func (f *stubFeed) FetchStock(ctx context.Context) (*devjewels.StockFeed, error) {
	return &devjewels.StockFeed{}, f.err
}

func (f *stubFeed) FetchDesigns(ctx context.Context) (*devjewels.DesignFeed, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &devjewels.DesignFeed{Records: f.designs}, nil
}

// memSequenceStore is a single-process service.SequenceStore.
type memSequenceStore struct {
	mu      sync.Mutex
	issued  map[string][]string
	lockErr error
}

func newMemSequenceStore() *memSequenceStore {
	return &memSequenceStore{issued: map[string][]string{}}
}

func (s *memSequenceStore) WithSequenceLock(ctx context.Context, name string, fn func(tx repository.SequenceTx) error) error {
	if s.lockErr != nil {
		return s.lockErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memSequenceTx{store: s})
}

type memSequenceTx struct{ store *memSequenceStore }

func (t *memSequenceTx) RecentIdentifiers(ctx context.Context, name, prefix string, limit int) ([]string, error) {
	ids := t.store.issued[name]
	out := make([]string, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, ids[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (t *memSequenceTx) Exists(ctx context.Context, identifier string) (bool, error) {
	for _, ids := range t.store.issued {
		for _, id := range ids {
			if id == identifier {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *memSequenceTx) Reserve(ctx context.Context, name, identifier string) error {
	t.store.issued[name] = append(t.store.issued[name], identifier)
	return nil
}
