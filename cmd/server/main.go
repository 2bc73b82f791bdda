// quickmark server entry point: wires the store, policy core, services,
// and HTTP routes, then serves until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickmark-app/quickmark/internal/api"
	"github.com/quickmark-app/quickmark/internal/config"
	"github.com/quickmark-app/quickmark/internal/hash"
	"github.com/quickmark-app/quickmark/internal/notes"
	"github.com/quickmark-app/quickmark/internal/obs"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/ratelimit"
	"github.com/quickmark-app/quickmark/internal/session"
	"github.com/quickmark-app/quickmark/internal/shares"
	"github.com/quickmark-app/quickmark/internal/store"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 10 * time.Second
)

func main() {
	obs.Init()
	log := obs.Pkg("main")

	flags := config.ParseFlags()
	cfg, err := config.Load(flags)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabasePath(), cfg.MasterKey)
	if err != nil {
		log.Error("open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	var hasher hash.Hasher = hash.Argon2Hasher{}
	if cfg.TestMode {
		log.Warn("test mode: using fake password hasher")
		hasher = hash.FakeInsecureHasher{}
	}

	clock := policy.SystemClock()
	pol := policy.New(clock, hasher, policy.OwnershipResolver{
		AllowOwnerless: cfg.AllowOwnerless,
	})

	sessions := session.NewService(st, clock, cfg.SessionDuration)
	notesSvc := notes.NewService(st, pol, hasher, sessions, clock)
	sharesSvc := shares.NewService(st, pol, hasher, sessions, clock)

	limiter := ratelimit.NewLimiter(cfg.RateLimit)
	defer limiter.Stop()

	handler := api.NewHandler(notesSvc, sharesSvc, sessions, limiter, cfg.SessionDuration, cfg.TestMode)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: obs.RequestLogMiddleware(handler.ActorMiddleware(mux)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background cleanup of expired sessions and their unlock ledgers.
	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := sessions.Cleanup(context.Background()); err != nil {
					log.Error("session cleanup", "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr, "test_mode", cfg.TestMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
