// s3hubd serves a media-oriented browser over S3-compatible object
// storage: connection profiles, bucket discovery, cached directory
// listings with signed URLs, and batch create/delete/upload
// operations.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/s3hub/internal/api"
	"github.com/koustreak/s3hub/internal/config"
	"github.com/koustreak/s3hub/internal/listing"
	"github.com/koustreak/s3hub/internal/logger"
	"github.com/koustreak/s3hub/internal/mutate"
	"github.com/koustreak/s3hub/internal/profile"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// No logger yet.
		panic("configuration error: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	log.Infof("s3hubd starting on %s", cfg.ListenAddr)

	blobs, err := profile.NewFileBlobs(cfg.Profiles.Dir)
	if err != nil {
		log.Fatal("profile storage init failed: " + err.Error())
	}
	profiles, err := profile.NewStore(blobs)
	if err != nil {
		log.Fatal("profile store load failed: " + err.Error())
	}

	cache, err := openCache(cfg)
	if err != nil {
		log.Fatal("cache init failed: " + err.Error())
	}
	defer cache.Close()

	listings := listing.NewService(cache, listing.Options{
		Filter:  listing.ParseFilter(cfg.Listing.Filter),
		TTL:     cfg.Cache.TTL.Std(),
		SignTTL: cfg.Listing.SignTTL.Std(),
		Logger:  log,
	})

	batches := mutate.NewCoordinator(listings, mutate.Options{
		SignTTL: cfg.Listing.SignTTL.Std(),
		Logger:  log,
	})

	server := api.NewServer(profiles, listings, batches, api.Options{
		PageSize: cfg.Listing.PageSize,
		Logger:   log,
	})
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeLoop(ctx, listings, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("shutdown incomplete: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed: " + err.Error())
	}

	log.Info("s3hubd stopped")
}

func openCache(cfg *config.Config) (listing.CacheStore, error) {
	if cfg.Cache.Backend == "sqlite" {
		return listing.NewSQLiteCache(cfg.Cache.Path)
	}
	return listing.NewMemoryCache(), nil
}

// purgeLoop sweeps expired cache entries hourly so a long-running
// daemon with the SQLite backend does not accumulate stale listings.
func purgeLoop(ctx context.Context, listings *listing.Service, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := listings.PurgeExpired()
			if err != nil {
				log.ErrorWith("cache purge failed", err, nil)
				continue
			}
			if n > 0 {
				log.Debugf("purged %d expired listings", n)
			}
		}
	}
}
