package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// DesignStore is the persistence the registry needs. Implemented by repository.DesignRepository.
type DesignStore interface {
	GetByDesignNo(ctx context.Context, designNo string) (*models.Design, error)
	Upsert(ctx context.Context, designNo string, f models.DesignFields, activeOnCreate bool) (bool, error)
	SetActive(ctx context.Context, designNo string, active bool) (bool, error)
	Toggle(ctx context.Context, designNo string) (active bool, found bool, err error)
	ListActive(ctx context.Context) ([]models.Design, error)
	List(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error)
}

// DesignRegistry owns the local design set and its visibility flags.
type DesignRegistry struct {
	store         DesignStore
	defaultActive bool
}

// NewDesignRegistry constructs a DesignRegistry. defaultActive is the
// visibility given to designs created by synchronization.
func NewDesignRegistry(store DesignStore, defaultActive bool) *DesignRegistry {
	return &DesignRegistry{store: store, defaultActive: defaultActive}
}

// Upsert creates the design or refreshes its metadata. Existing rows are only
// written when forceUpdate is set or some field differs. Visibility is never
// changed here.
func (r *DesignRegistry) Upsert(ctx context.Context, designNo string, fields models.DesignFields, forceUpdate bool) (models.UpsertResult, error) {
	designNo = strings.TrimSpace(designNo)
	if designNo == "" {
		log.Warn().Msg("design upsert without design number")
		return models.UpsertSkipped, fmt.Errorf("%w: design number is required", utils.ErrValidation)
	}

	existing, err := r.store.GetByDesignNo(ctx, designNo)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("load design %s: %w", designNo, err)
	}
	if existing != nil && !forceUpdate && existing.Fields() == fields {
		return models.UpsertSkipped, nil
	}

	inserted, err := r.store.Upsert(ctx, designNo, fields, r.defaultActive)
	if err != nil {
		return "", err
	}
	if inserted {
		return models.UpsertCreated, nil
	}
	return models.UpsertUpdated, nil
}

// SetActive and Toggle are the only operations that change design visibility.
func (r *DesignRegistry) SetActive(ctx context.Context, designNo string, active bool) error {
	found, err := r.store.SetActive(ctx, designNo, active)
	if err != nil {
		return fmt.Errorf("set design %s active=%t: %w", designNo, active, err)
	}
	if !found {
		return utils.ErrDesignNotFound
	}
	return nil
}

// Toggle atomically flips the visibility of a design and returns the new value.
func (r *DesignRegistry) Toggle(ctx context.Context, designNo string) (bool, error) {
	active, found, err := r.store.Toggle(ctx, designNo)
	if err != nil {
		return false, fmt.Errorf("toggle design %s: %w", designNo, err)
	}
	if !found {
		return false, utils.ErrDesignNotFound
	}
	return active, nil
}

// ListActive returns the active designs keyed by design number.
func (r *DesignRegistry) ListActive(ctx context.Context) (map[string]models.Design, error) {
	designs, err := r.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active designs: %w", err)
	}
	out := make(map[string]models.Design, len(designs))
	for _, d := range designs {
		out[d.DesignNo] = d
	}
	return out, nil
}

// Get returns a single design.
func (r *DesignRegistry) Get(ctx context.Context, designNo string) (*models.Design, error) {
	d, err := r.store.GetByDesignNo(ctx, designNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.ErrDesignNotFound
	}
	return d, err
}

// List returns a page of designs for the admin listing.
func (r *DesignRegistry) List(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error) {
	return r.store.List(ctx, filter)
}
