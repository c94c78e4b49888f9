package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/commander-clash/api/internal/auth"
	"github.com/freeeve/commander-clash/api/internal/config"
	"github.com/freeeve/commander-clash/api/internal/handler"
	"github.com/freeeve/commander-clash/api/internal/logger"
	"github.com/freeeve/commander-clash/api/internal/middleware"
	"github.com/freeeve/commander-clash/api/internal/repository/postgres"
	redisrepo "github.com/freeeve/commander-clash/api/internal/repository/redis"
	"github.com/freeeve/commander-clash/api/internal/service"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_DIR"))
	if err != nil {
		logger.Init(logger.Options{})
		log.Fatal().Err(err).Msg("Config load failed")
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.DevMode})

	battleCfg, err := cfg.Battle.BattleConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid battle settings")
	}
	log.Info().
		Int("maxRounds", battleCfg.MaxRounds).
		Dur("decisionWindow", cfg.Battle.DecisionWindow).
		Bool("resolveOnPick", cfg.Battle.ResolveOnPick).
		Msg("Config loaded")

	// Database
	db, err := postgres.Connect(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db, cfg.DB.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("Migration failed")
		}
	}

	// Redis
	redisClient, err := redisrepo.NewClient(context.Background(), cfg.RedisURL, redisrepo.Options{
		PoolSize: cfg.Redis.PoolSize,
		StateTTL: cfg.Redis.StateTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer redisClient.Close()

	// Repos
	commanderRepo := postgres.NewCommanderRepo(db)
	battleRepo := postgres.NewBattleRepo(db)

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret)
	wsHub := handler.NewHub()

	battleSvc := service.NewBattleService(commanderRepo, battleRepo, redisClient, wsHub, battleCfg, service.EngineOptions{
		DecisionWindow: cfg.Battle.DecisionWindow,
		ResolveOnPick:  cfg.Battle.ResolveOnPick,
	})

	// Engines live in memory, so anything still active was orphaned by a restart.
	if err := battleSvc.AbandonStaleBattles(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to abort stale battles (non-fatal)")
	}

	authHandler := handler.NewAuthHandler(jwtMgr, cfg.DevMode)
	commanderHandler := handler.NewCommanderHandler(battleSvc)
	battleHandler := handler.NewBattleHandler(battleSvc)
	wsHandler := handler.NewWSHandler(wsHub, jwtMgr, battleSvc)

	mux := http.NewServeMux()
	authMw := auth.Middleware(jwtMgr)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		if err := db.PingContext(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("POST /auth/dev", authHandler.DevLogin)

	api := http.NewServeMux()
	api.HandleFunc("GET /commanders", commanderHandler.ListCommanders)
	api.HandleFunc("POST /battles", battleHandler.StartBattle)
	api.HandleFunc("GET /battles/{id}", battleHandler.GetBattle)
	api.HandleFunc("GET /battles/{id}/rounds", battleHandler.ListRounds)
	api.HandleFunc("POST /battles/{id}/pick", battleHandler.SubmitPick)
	api.HandleFunc("DELETE /battles/{id}", battleHandler.AbortBattle)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", authMw(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", wsHandler.ServeWS)

	root := middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS("*"), middleware.JSON)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	if err := battleSvc.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Battle shutdown incomplete")
	}
	log.Info().Msg("Server stopped")
}
