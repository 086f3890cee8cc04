package main

import (
	"context"
	"log"
	"net"

	"github.com/joho/godotenv"

	"github.com/vibesense/vibesense/internal/config"
	"github.com/vibesense/vibesense/internal/database"
	"github.com/vibesense/vibesense/internal/domain"
	"github.com/vibesense/vibesense/internal/logger"
	"github.com/vibesense/vibesense/internal/repository"
	"github.com/vibesense/vibesense/internal/server"
	"github.com/vibesense/vibesense/internal/services"
	"github.com/vibesense/vibesense/internal/state"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting VibeSense...")

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	prefsRepo := repository.NewPreferencesRepository(db)
	contextRepo := repository.NewContextRepository(db)

	var cache domain.SuggestionCache = state.NewManager()
	if cfg.Redis.Enabled {
		redisCache, err := state.NewRedisCache(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory suggestion cache", "error", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
			logger.Info("Using Redis suggestion cache", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
		}
	}

	var refiner domain.Refiner
	if cfg.AI.Provider != "none" {
		refiner, err = services.NewAIRefiner(context.Background(), cfg.AI)
		if err != nil {
			logger.Warn("Refinement disabled", "error", err)
			refiner = nil
		} else {
			logger.Info("Suggestion refinement enabled", "provider", cfg.AI.Provider)
		}
	}

	heartService := services.NewHeartService(state.NewHeartStates(), cfg.Heart)
	moodService := services.NewMoodService(cfg.Heart)
	suggestionService := services.NewSuggestionService(refiner, contextRepo, cfg.AI.RefineTimeout)

	handlers := server.NewHandlers(heartService, moodService, suggestionService, prefsRepo, contextRepo, cache)
	srv := server.New(server.Config{
		Addr: net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
	}, handlers)

	if err := srv.Run(); err != nil {
		logger.Fatal("Server stopped with error", "error", err)
	}
}
