package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/resumatch/internal/config"
	"alfredoptarigan/resumatch/internal/handlers"
	"alfredoptarigan/resumatch/internal/logger"
	"alfredoptarigan/resumatch/internal/repositories"
	"alfredoptarigan/resumatch/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get database handle", zap.Error(err))
	}

	analysisRepo := repositories.NewAnalysisRepository(db)
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	contactRepo := repositories.NewContactRepository(db)

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}
	log.Info("gemini initialized", zap.String("model", gemini.Model()), zap.Duration("timeout", cfg.Gemini.Timeout))

	var skillReference services.SkillReference
	if cfg.Qdrant.URL != "" {
		index, err := services.NewSkillIndex(cfg.Qdrant, log)
		if err != nil {
			log.Fatal("failed to initialize qdrant", zap.Error(err))
		}
		if err := index.EnsureCollection(ctx); err != nil {
			log.Warn("skill reference disabled, collection unavailable", zap.Error(err))
		} else {
			skillReference = services.NewSkillReference(index, gemini, 0)
			log.Info("skill reference enabled", zap.String("collection", cfg.Qdrant.Collection))
		}
	}

	archive, err := services.NewResumeArchive(ctx, cfg.Storage)
	if err != nil {
		log.Fatal("failed to initialize resume archive", zap.Error(err))
	}
	log.Info("resume archive initialized", zap.String("driver", cfg.Storage.Driver))

	sessionCache := services.NewSessionCache(cfg.Redis, log)
	defer sessionCache.Close()

	requester := services.NewAnalysisRequester(gemini, services.NewPromptBuilder(), services.RequesterOptions{
		Timeout:        cfg.Gemini.Timeout,
		Temperature:    cfg.Gemini.Temperature,
		SkillReference: skillReference,
	}, log)

	analysisService := services.NewAnalysisService(analysisRepo, services.NewDocumentParser(), requester, archive, log)
	authService := services.NewAuthService(
		services.NewSessionSource(cfg.Auth.SessionURL),
		userRepo,
		sessionRepo,
		sessionCache,
		cfg.Auth.SessionTTL,
		log,
	)
	contactService := services.NewContactService(contactRepo, services.NewSMTPMailer(cfg.Email), log)

	app := fiber.New(fiber.Config{
		AppName:      "ResuMatch API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 30*time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.NewErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.Server.CORSOrigins != "*",
	}))

	handlers.Routes{
		Analysis: handlers.NewAnalysisHandler(analysisService, cfg.Storage.MaxFileSize),
		Auth: handlers.NewAuthHandler(authService, handlers.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			TTL:    cfg.Auth.SessionTTL,
		}),
		Contact:     handlers.NewContactHandler(contactService),
		RequireAuth: handlers.RequireSession(authService, cfg.Auth.CookieName),
		HealthCheck: sqlDB.PingContext,
	}.Register(app)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(cfg.Gemini.Timeout); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))

	if err := app.Listen(addr); err != nil {
		log.Error("server stopped", zap.Error(err))
	}

	if err := config.CloseDatabase(db); err != nil {
		log.Error("failed to close database", zap.Error(err))
	}
	log.Info("server stopped")
}
