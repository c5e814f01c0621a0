package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// DesignSynchronizer runs one design sync. Implemented by service.CatalogSyncService.
type DesignSynchronizer interface {
	SynchronizeDesigns(ctx context.Context, forceUpdate bool) (models.SyncStats, error)
}

// DesignSyncWorker periodically pulls the design feed into the registry.
type DesignSyncWorker struct {
	syncer   DesignSynchronizer
	interval time.Duration
}

// NewDesignSyncWorker constructs a DesignSyncWorker.
func NewDesignSyncWorker(syncer DesignSynchronizer, interval time.Duration) *DesignSyncWorker {
	return &DesignSyncWorker{
		syncer:   syncer,
		interval: interval,
	}
}

// Start begins the periodic sync loop and listens for context cancellation.
// A zero interval disables the worker.
func (w *DesignSyncWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("Design sync worker disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Msg("Starting design sync worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Design sync worker stopped")
			return
		}
	}
}

func (w *DesignSyncWorker) run(ctx context.Context) {
	stats, err := w.syncer.SynchronizeDesigns(ctx, false)
	if errors.Is(err, utils.ErrSyncInProgress) {
		log.Info().Msg("Design sync already running, skipping tick")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Scheduled design sync failed")
		return
	}
	log.Debug().Int("created", stats.Created).Int("updated", stats.Updated).Msg("Scheduled design sync finished")
}
