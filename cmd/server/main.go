package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"kknotes-backend-go/internal/config"
	"kknotes-backend-go/internal/db"
	httpapi "kknotes-backend-go/internal/http"
	"kknotes-backend-go/internal/migrations"
	"kknotes-backend-go/internal/services"
	"kknotes-backend-go/internal/session"
	"kknotes-backend-go/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	cleanupLogs, err := setupLogger(cfg)
	if err != nil {
		log.Error().Err(err).Msg("logger setup failed")
	} else {
		defer cleanupLogs()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	treeStore, closeStore := openStore(ctx, cfg)
	defer closeStore()
	sessionStore, closeSessions := openSessions(ctx, cfg)
	defer closeSessions()

	boot := services.Bootstrap{
		Store:          treeStore,
		PermanentAdmin: cfg.PermanentAdminEmail,
		Version:        cfg.AppVersion,
		Features:       cfg.Features,
	}
	if err := boot.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("bootstrap")
	}

	monitor := services.NewReadMonitor(treeStore, cfg.ReadWarnAfter(), cfg.ReconnectDelay(), cfg.OfflineWindow())
	sessions := &services.Sessions{
		Identity: services.JWTIdentityProvider{
			Secret:   []byte(cfg.IdentitySecret),
			Issuer:   cfg.IdentityIssuer,
			Audience: cfg.IdentityAudience,
		},
		Roles:  &services.RoleResolver{Store: treeStore, Monitor: monitor},
		Store:  sessionStore,
		Tokens: services.TokenService{Secret: []byte(cfg.SessionSecret), Issuer: cfg.SessionIssuer, TTL: cfg.SessionTTL()},
		TTL:    cfg.SessionTTL(),
	}

	server := httpapi.NewServer(cfg, treeStore, sessions, monitor)
	server.Run(ctx)
	go metricsLoop(ctx, server)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(ctx),
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Str("store", cfg.StoreBackend).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	monitor.Wait()
	log.Info().Msg("shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func()) {
	if cfg.StoreBackend != config.StorePostgres {
		return store.NewMemoryStore(), func() {}
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	if err := migrations.Apply(ctx, database); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}
	pg := store.NewPostgresStore(database, cfg.DatabaseURL)
	return pg, func() {
		pg.GoOffline()
		_ = database.Close()
	}
}

func openSessions(ctx context.Context, cfg config.Config) (session.Store, func()) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(), func() {}
	}
	redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	return redisStore, func() { _ = redisStore.Close() }
}

func metricsLoop(ctx context.Context, server *httpapi.Server) {
	ticker := time.NewTicker(server.Config.MetricsInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			server.SampleMetrics(ctx)
		case <-ctx.Done():
			return
		}
	}
}
