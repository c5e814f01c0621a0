package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/cache"
	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/sse"
)

// DesignAdminService implements admin actions on design visibility and the catalog cache.
type DesignAdminService struct {
	registry *DesignRegistry
	cache    cache.CatalogCache
	notifier sse.CatalogNotifier
}

// NewDesignAdminService constructs a DesignAdminService.
func NewDesignAdminService(registry *DesignRegistry, c cache.CatalogCache, notifier sse.CatalogNotifier) *DesignAdminService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &DesignAdminService{registry: registry, cache: c, notifier: notifier}
}

// ToggleDesign sets the visibility of a design. A nil active flips the current
// value in the store so concurrent flips never collapse into one.
// The catalog cache is invalidated so readers stop seeing the old visibility.
func (s *DesignAdminService) ToggleDesign(ctx context.Context, designNo string, active *bool, actor string) (*models.Design, error) {
	var target bool
	if active != nil {
		target = *active
		if err := s.registry.SetActive(ctx, designNo, target); err != nil {
			return nil, err
		}
	} else {
		flipped, err := s.registry.Toggle(ctx, designNo)
		if err != nil {
			return nil, err
		}
		target = flipped
	}

	d, err := s.registry.Get(ctx, designNo)
	if err != nil {
		return nil, err
	}
	d.IsActive = target

	if err := s.cache.Invalidate(ctx); err != nil {
		// The toggle is committed; readers converge when the snapshot expires.
		log.Warn().Err(err).Str("design_no", designNo).Msg("catalog invalidation after toggle failed")
	}
	s.notifier.NotifyDesignToggled(designNo, target, actor)

	log.Info().Str("design_no", designNo).Bool("is_active", target).Str("actor", actor).Msg("design visibility changed")
	return d, nil
}

// InvalidateCatalog forces the next read to rebuild the product view.
func (s *DesignAdminService) InvalidateCatalog(ctx context.Context, actor string) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate catalog: %w", err)
	}
	s.notifier.NotifyCatalogInvalidated(actor)
	log.Info().Str("actor", actor).Msg("catalog cache invalidated")
	return nil
}

// ListDesigns returns a page of designs for the admin listing.
func (s *DesignAdminService) ListDesigns(ctx context.Context, filter models.DesignFilter) ([]models.Design, int, error) {
	return s.registry.List(ctx, filter)
}
