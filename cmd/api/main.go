package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"leadmarket/internal/config"
	"leadmarket/internal/database"
	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/geo"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/notification"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/domain/quality"
	"leadmarket/internal/domain/scoring"
	"leadmarket/internal/jobs"
	"leadmarket/internal/middleware"
	"leadmarket/internal/modules/intake"
	"leadmarket/internal/modules/marketplace"
	"leadmarket/internal/pkg/cache"
	jwtsvc "leadmarket/internal/pkg/jwt"
	"leadmarket/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&lead.Lead{},
		&provider.Provider{},
		&allocation.Assignment{},
		&allocation.UnlockRecord{},
		&credit.Transaction{},
	); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	var listings *cache.ListingCache
	if cfg.RedisURL != "" {
		listings, err = cache.New(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			zlog.Fatal("redis connection failed", zap.Error(err))
		}
		defer listings.Close()
	} else {
		zlog.Warn("REDIS_URL not set, listing cache disabled")
	}

	leadRepo := lead.NewRepository(db)
	providerRepo := provider.NewRepository(db)

	ruleEngine := scoring.NewRuleEngine()
	var model *scoring.ModelEngine
	if cfg.MLEnabled && cfg.ModelPath != "" {
		model, err = scoring.LoadModel(cfg.ModelPath)
		if err != nil {
			zlog.Warn("model load failed, scoring on rules only", zap.Error(err))
		}
	}
	scorer := scoring.NewBlendedEngine(ruleEngine, model, scoring.Options{MLEnabled: cfg.MLEnabled}, zlog)

	gate := quality.NewGate(quality.Config{
		MinScore:          cfg.MinQualityScore,
		MinModelScore:     cfg.MinModelScore,
		MinDescriptionLen: cfg.MinDescriptionLen,
		DuplicateWindow:   cfg.DuplicateWindow,
		DisposableDomains: cfg.DisposableDomains,
	}, scorer, leadRepo, zlog)

	matcher := geo.NewMatcher()
	pricer := pricing.NewEngine(pricing.Config{
		BasePrice: cfg.BasePrice,
		Floor:     cfg.PriceFloor,
		Ceiling:   cfg.PriceCeiling,
	})
	ledger := credit.NewLedger(db)
	notifier := notification.NewLogNotifier(zlog)

	engine := allocation.NewEngine(db, providerRepo, matcher, scorer, pricer, ledger, notifier, zlog, allocation.Config{
		CandidateLimit:  cfg.CandidateLimit,
		OverfetchFactor: cfg.OverfetchFactor,
	})

	intakeService := intake.NewService(leadRepo, scorer, gate, engine, listings, intake.Config{
		DefaultMaxProviders: cfg.DefaultMaxProviders,
		LeadTTL:             cfg.LeadTTL,
	}, zlog)
	intakeHandler := intake.NewHandler(intakeService)

	marketService := marketplace.NewService(leadRepo, providerRepo, engine, matcher, pricer, ledger, listings, zlog)
	marketHandler := marketplace.NewHandler(marketService)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(zlog))

	v1 := r.Group("/api/v1")
	{
		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(j))
		{
			intakeHandler.RegisterRoutes(protected)

			providers := protected.Group("/")
			providers.Use(middleware.RequireProvider())
			{
				marketHandler.RegisterRoutes(providers)
			}
		}
	}

	sweeper := jobs.NewSweeper(leadRepo, engine, listings, zlog)
	runner := cron.New()
	if err := sweeper.Schedule(runner, cfg.ExpireSchedule, cfg.ResweepSchedule); err != nil {
		zlog.Fatal("cron schedule failed", zap.Error(err))
	}
	runner.Start()
	defer runner.Stop()

	zlog.Info("api listening", zap.String("addr", cfg.HTTPAddr))
	if err := r.Run(cfg.HTTPAddr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
