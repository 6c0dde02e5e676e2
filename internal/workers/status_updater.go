package workers

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"crm-portal/internal/database"
	"crm-portal/internal/services"
	"crm-portal/internal/tracking"
)

// StatusUpdater periodically refreshes the carrier status of active shipments.
// Shipments in a terminal state (DELIVERED, CANCELLED) or under MANUAL
// override are never touched.
type StatusUpdater struct {
	ctx       context.Context
	cancel    context.CancelFunc
	interval  time.Duration
	shipments *database.ShipmentStore
	resolver  *services.Resolver
	paused    atomic.Bool
}

// NewStatusUpdater creates a new background status updater
func NewStatusUpdater(interval time.Duration, shipments *database.ShipmentStore, resolver *services.Resolver) *StatusUpdater {
	ctx, cancel := context.WithCancel(context.Background())
	return &StatusUpdater{
		ctx:       ctx,
		cancel:    cancel,
		interval:  interval,
		shipments: shipments,
		resolver:  resolver,
	}
}

// Start begins the background update loop
func (u *StatusUpdater) Start() {
	log.Printf("INFO: Starting status updater, interval %s", u.interval)
	go u.updateLoop()
}

// Stop gracefully stops the background update loop
func (u *StatusUpdater) Stop() {
	log.Printf("INFO: Stopping status updater")
	u.cancel()
}

// Pause temporarily pauses automatic updates
func (u *StatusUpdater) Pause() {
	u.paused.Store(true)
	log.Printf("INFO: Status updater paused")
}

// Resume resumes automatic updates
func (u *StatusUpdater) Resume() {
	u.paused.Store(false)
	log.Printf("INFO: Status updater resumed")
}

// IsPaused returns true if the updater is currently paused
func (u *StatusUpdater) IsPaused() bool {
	return u.paused.Load()
}

// IsRunning returns true if the updater has not been stopped
func (u *StatusUpdater) IsRunning() bool {
	select {
	case <-u.ctx.Done():
		return false
	default:
		return true
	}
}

func (u *StatusUpdater) updateLoop() {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	// First pass after a short delay so startup is not blocked by slow fetches
	initialDelay := time.NewTimer(30 * time.Second)
	defer initialDelay.Stop()

	for {
		select {
		case <-u.ctx.Done():
			log.Printf("INFO: Status updater stopped")
			return

		case <-initialDelay.C:
			u.refreshActiveShipments()

		case <-ticker.C:
			u.refreshActiveShipments()
		}
	}
}

func (u *StatusUpdater) refreshActiveShipments() {
	if u.paused.Load() {
		log.Printf("DEBUG: Status updater paused, skipping cycle")
		return
	}

	shipments, err := u.shipments.GetActive()
	if err != nil {
		log.Printf("ERROR: Failed to fetch active shipments: %v", err)
		return
	}

	if len(shipments) == 0 {
		log.Printf("DEBUG: No active shipments to refresh")
		return
	}

	log.Printf("INFO: Refreshing %d active shipments", len(shipments))
	startTime := time.Now()
	refreshed := 0

	for _, shipment := range shipments {
		if u.ctx.Err() != nil {
			return
		}
		if u.refreshShipment(&shipment) {
			refreshed++
		}
	}

	log.Printf("INFO: Refresh cycle done, %d/%d updated in %s",
		refreshed, len(shipments), time.Since(startTime).Round(time.Millisecond))
}

// refreshShipment resolves one shipment and persists the outcome. Returns
// true when the shipment row was updated.
func (u *StatusUpdater) refreshShipment(shipment *database.Shipment) bool {
	identifier := shipment.TrackingIdentifier()
	if identifier == "" {
		log.Printf("DEBUG: Shipment %d has no tracking identifier, skipping", shipment.ID)
		return false
	}

	cachedUUID := ""
	if shipment.CdekUUID != nil {
		cachedUUID = *shipment.CdekUUID
	}

	record, err := u.resolver.Resolve(u.ctx, identifier, cachedUUID)
	if err != nil {
		// Rate-limit blocks are expected when cycles overlap the per-ID
		// minimum interval.
		if trackErr := tracking.AsError(err, tracking.ErrAPIError); trackErr.Code == tracking.ErrRateLimit {
			log.Printf("DEBUG: Shipment %d rate limited, will retry next cycle", shipment.ID)
			return false
		}
		log.Printf("WARN: Auto-refresh failed for shipment %d (%s): %v", shipment.ID, identifier, err)
		return false
	}

	state := tracking.StateAfterSuccess(tracking.ShipmentState(shipment.CdekState), record)

	var uuid *string
	if record.OrderUUID != "" {
		uuid = &record.OrderUUID
	}
	status := record.Status
	location := record.CurrentCity
	updatedAt := record.Timestamp()
	if err := u.shipments.UpdateTracking(shipment.ID, uuid, string(state), &status, &location, &updatedAt); err != nil {
		log.Printf("ERROR: Failed to persist auto-refresh result for shipment %d: %v", shipment.ID, err)
		return false
	}

	if string(state) != shipment.CdekState {
		log.Printf("INFO: Shipment %d state %s -> %s (%s)", shipment.ID, shipment.CdekState, state, record.Status)
	}
	return true
}
