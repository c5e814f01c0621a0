package sse

import (
	"time"

	"github.com/GTDGit/jewel_catalog/internal/models"
)

// CatalogNotifier is the interface services use to emit catalog events.
type CatalogNotifier interface {
	NotifyDesignToggled(designNo string, active bool, actor string)
	NotifyDesignsSynced(stats models.SyncStats)
	NotifyCatalogInvalidated(actor string)
}

// HubNotifier implements CatalogNotifier using the SSE Hub.
type HubNotifier struct {
	hub *Hub
}

// NewHubNotifier creates a notifier backed by the given Hub.
func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyDesignToggled(designNo string, active bool, actor string) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{
		Event:     EventDesignToggled,
		DesignNo:  designNo,
		IsActive:  &active,
		Actor:     actor,
		Timestamp: time.Now(),
	})
}

func (n *HubNotifier) NotifyDesignsSynced(stats models.SyncStats) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{Event: EventDesignsSynced, Stats: &stats, Timestamp: time.Now()})
}

func (n *HubNotifier) NotifyCatalogInvalidated(actor string) {
	if n.hub.ClientCount() == 0 {
		return
	}
	n.hub.Broadcast(&CatalogEvent{Event: EventCatalogInvalidated, Actor: actor, Timestamp: time.Now()})
}

// NopNotifier is a no-op implementation for when SSE is not needed.
type NopNotifier struct{}

func (n *NopNotifier) NotifyDesignToggled(designNo string, active bool, actor string) {}
func (n *NopNotifier) NotifyDesignsSynced(stats models.SyncStats)                     {}
func (n *NopNotifier) NotifyCatalogInvalidated(actor string)                          {}
