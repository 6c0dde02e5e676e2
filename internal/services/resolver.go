package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"crm-portal/internal/cache"
	"crm-portal/internal/ratelimit"
	"crm-portal/internal/tracking"
)

// Tracking modes selectable via configuration.
const (
	ModeAPI    = "api"
	ModeScrape = "scrape"
	ModeAuto   = "auto"
)

var trackNumberRe = regexp.MustCompile(`^[0-9A-Za-z-]{4,40}$`)

// Resolver is the single entry point for shipment status resolution. It owns
// the cache-check, throttle-check, fetch, cache-write sequence so callers
// (shipment refresh, public track endpoint, CLI) all share one policy.
type Resolver struct {
	mode    string
	api     tracking.StatusFetcher
	scrape  tracking.StatusFetcher
	tokens  *tracking.TokenManager
	cache   *cache.Manager
	limiter *ratelimit.Limiter
}

// NewResolver creates a resolver. Either fetcher may be nil when the
// corresponding mode is not configured.
func NewResolver(mode string, api, scrape tracking.StatusFetcher, tokens *tracking.TokenManager, cacheManager *cache.Manager, limiter *ratelimit.Limiter) *Resolver {
	if mode == "" {
		mode = ModeAuto
	}
	return &Resolver{
		mode:    mode,
		api:     api,
		scrape:  scrape,
		tokens:  tokens,
		cache:   cacheManager,
		limiter: limiter,
	}
}

// Resolve returns the current status record for a tracking identifier.
// cachedUUID, when known from a previous resolution, skips the carrier-side
// number-to-UUID lookup in API mode.
func (r *Resolver) Resolve(ctx context.Context, id, cachedUUID string) (*tracking.StatusRecord, error) {
	id = strings.TrimSpace(id)
	if !trackNumberRe.MatchString(id) {
		return nil, tracking.NewError(tracking.ErrInvalidTrackNumber, "malformed tracking identifier")
	}

	if cached, err := r.cache.Get(id); err != nil {
		log.Printf("WARN: Tracking cache lookup failed for %s: %v", id, err)
	} else if cached != nil {
		return cached, nil
	}

	if result := r.limiter.Check(id); result.ShouldBlock {
		return nil, tracking.NewError(tracking.ErrRateLimit,
			fmt.Sprintf("fetch throttled, retry in %s", result.RemainingTime.Round(0)))
	}

	fetcher, err := r.selectFetcher()
	if err != nil {
		return nil, err
	}

	r.limiter.MarkFetched(id)
	record, err := fetcher.FetchByIdentifier(ctx, id, cachedUUID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(id, record); err != nil {
		log.Printf("WARN: Failed to cache tracking record for %s: %v", id, err)
	}
	return record, nil
}

// Invalidate drops the cached record so the next Resolve hits the carrier.
func (r *Resolver) Invalidate(id string) error {
	return r.cache.Invalidate(id)
}

// selectFetcher picks the strategy for the configured mode. Auto prefers
// the API when credentials are configured and falls back to scraping.
func (r *Resolver) selectFetcher() (tracking.StatusFetcher, error) {
	switch r.mode {
	case ModeAPI:
		if r.api == nil {
			return nil, tracking.NewError(tracking.ErrAuthMissing, "API mode selected but no API fetcher configured")
		}
		return r.api, nil
	case ModeScrape:
		if r.scrape == nil {
			return nil, tracking.NewError(tracking.ErrPageLoadFailed, "scrape mode selected but no scrape fetcher configured")
		}
		return r.scrape, nil
	default:
		if r.api != nil && r.tokens != nil && r.tokens.Configured() {
			return r.api, nil
		}
		if r.scrape != nil {
			return r.scrape, nil
		}
		return nil, tracking.NewError(tracking.ErrAuthMissing, "no tracking strategy available")
	}
}
