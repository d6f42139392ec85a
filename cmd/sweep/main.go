package main

import (
	"context"
	"log"
	"os"
	"time"

	"leadmarket/internal/database"
	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/geo"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/notification"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/domain/scoring"
	"leadmarket/internal/jobs"
	"leadmarket/internal/pkg/logger"
)

// One-shot maintenance run for environments without the in-process cron:
// expires stale leads and retries allocation for unfilled ones.
func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	zlog, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	leadRepo := lead.NewRepository(db)
	providerRepo := provider.NewRepository(db)
	scorer := scoring.NewBlendedEngine(scoring.NewRuleEngine(), nil, scoring.Options{}, zlog)
	engine := allocation.NewEngine(
		db,
		providerRepo,
		geo.NewMatcher(),
		scorer,
		pricing.NewEngine(pricing.Config{}),
		credit.NewLedger(db),
		notification.NewLogNotifier(zlog),
		zlog,
		allocation.Config{},
	)

	sweeper := jobs.NewSweeper(leadRepo, engine, nil, zlog)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := sweeper.ExpireStale(ctx)
	if err != nil {
		log.Fatalf("expiry sweep failed: %v", err)
	}

	created, err := sweeper.ResweepUnfilled(ctx)
	if err != nil {
		log.Fatalf("re-allocation sweep failed: %v", err)
	}

	log.Printf("sweep completed: expired=%d new_assignments=%d", expired, created)
}
