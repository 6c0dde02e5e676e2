package main

import (
	"log"
	"net/http"
	"time"

	"crm-portal/internal/cache"
	"crm-portal/internal/config"
	"crm-portal/internal/database"
	"crm-portal/internal/ratelimit"
	"crm-portal/internal/server"
	"crm-portal/internal/services"
	"crm-portal/internal/tracking"
	"crm-portal/internal/workers"
)

func main() {
	cfg, err := config.LoadServerConfigWithEnvFile("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("INFO: Database initialized at %s", cfg.DBPath)

	cacheManager := cache.NewManager(db.TrackCache, cfg.DisableCache, cfg.CacheTTL)
	limiter := ratelimit.New(cfg.FetchMinInterval, cfg.DisableRateLimit)

	tokens := tracking.NewTokenManager(cfg.CdekAccount, cfg.CdekSecure, cfg.CdekAPIURL+"/oauth/token")

	var apiFetcher tracking.StatusFetcher
	if tokens.Configured() {
		apiFetcher = tracking.NewAPIFetcher(cfg.CdekAPIURL, tokens)
		log.Printf("INFO: Carrier API tracking enabled")
	} else {
		log.Printf("INFO: No carrier credentials, tracking will rely on page scraping")
	}

	loader := tracking.NewChromeLoader(cfg.BrowserTimeout, cfg.BrowserSettle)
	scrapeFetcher := tracking.NewScrapeFetcher(cfg.CdekTrackURL, loader)

	resolver := services.NewResolver(cfg.TrackingMode, apiFetcher, scrapeFetcher, tokens, cacheManager, limiter)

	var updater *workers.StatusUpdater
	if cfg.AutoRefreshEnabled {
		updater = workers.NewStatusUpdater(cfg.AutoRefreshInterval, db.Shipments, resolver)
		updater.Start()
	} else {
		log.Printf("INFO: Auto-refresh disabled, shipments update on demand only")
	}

	handler := server.NewRouter(db, resolver, cacheManager)

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: handler,

		// A scrape-mode resolution can hold a request for the full browser
		// timeout plus settling, so the write timeout leaves headroom.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownTimeout := 30 * time.Second
	cleanup := func() {
		if updater != nil {
			updater.Stop()
		}
		cacheManager.Close()
	}
	if err := server.HandleSignals(srv, shutdownTimeout, cleanup); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
