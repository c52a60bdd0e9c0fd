package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/azamatb/objbrowse/internal/backend"
	"github.com/azamatb/objbrowse/internal/browser"
	"github.com/azamatb/objbrowse/internal/config"
	"github.com/azamatb/objbrowse/internal/history"
	"github.com/azamatb/objbrowse/internal/logger"
	"github.com/azamatb/objbrowse/internal/server"
	"github.com/azamatb/objbrowse/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Dependencies{Config: cfg}

	var recorder browser.Recorder
	if cfg.Postgres.Enabled {
		dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("connect postgres")
		}
		defer dbPool.Close()

		repo := history.NewRepository(dbPool)
		deps.DB = dbPool
		deps.History = repo
		recorder = repo
	}

	factory, defaultClient, err := clientFactory(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init object-store backend")
	}
	deps.Backend = defaultClient

	deps.Sessions = browser.NewManager(factory, browser.Options{
		UploadStepDelay: cfg.Browse.UploadStepDelay,
		UploadPause:     cfg.Browse.UploadPause,
		Recorder:        recorder,
		Logger:          log,
	})

	router := server.NewRouter(deps)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address()).Str("backend", cfg.MinIO.Backend).Msg("objbrowse API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// clientFactory builds per-session backend clients. Memory mode shares one
// in-memory store across sessions so demo data stays consistent; minio mode
// opens a client per credentials blob, falling back to the shared default
// client when none is supplied.
func clientFactory(cfg config.Config) (browser.ClientFactory, backend.Client, error) {
	if cfg.MinIO.Backend == "memory" {
		mem := backend.NewMemory(cfg.Browse.MemoryLatency)
		seedDemoData(mem)
		return func(*backend.Credentials) (backend.Client, error) {
			return mem, nil
		}, mem, nil
	}

	defaultMinio, err := storage.NewMinIOClient(cfg.MinIO, nil)
	if err != nil {
		return nil, nil, err
	}
	defaultClient := backend.NewMinIO(defaultMinio, cfg.MinIO.Region)

	factory := func(creds *backend.Credentials) (backend.Client, error) {
		if creds == nil {
			return defaultClient, nil
		}
		client, err := storage.NewMinIOClient(cfg.MinIO, creds)
		if err != nil {
			return nil, err
		}
		region := cfg.MinIO.Region
		if creds.Region != "" {
			region = creds.Region
		}
		return backend.NewMinIO(client, region), nil
	}
	return factory, defaultClient, nil
}

func seedDemoData(mem *backend.Memory) {
	now := time.Now()
	mem.SeedBucket("empty-bucket", now.Add(-48*time.Hour))
	mem.Seed("demo", "readme.md", "text/markdown", []byte("# demo bucket\n"), now.Add(-24*time.Hour))
	mem.Seed("demo", "reports/q1.pdf", "application/pdf", make([]byte, 2048), now.Add(-12*time.Hour))
	mem.Seed("demo", "reports/q2.pdf", "application/pdf", make([]byte, 4096), now.Add(-6*time.Hour))
	mem.Seed("demo", "media/logo.png", "image/png", make([]byte, 1024), now.Add(-3*time.Hour))
}
