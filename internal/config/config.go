package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "leadmarket.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTTTL          = "24h"
	defaultBasePrice       = "2"
	defaultPriceFloor      = "1"
	defaultPriceCeiling    = "20"
	defaultMinQualityScore = "30"
	defaultMinModelScore   = "40"
	defaultMinDescription  = "20"
	defaultDuplicateWindow = "24h"
	defaultMaxProviders    = "3"
	defaultLeadTTL         = "720h"
	defaultCandidateLimit  = "10"
	defaultOverfetch       = "3"
	defaultCacheTTL        = "30s"
	defaultExpireSchedule  = "17 * * * *"
	defaultResweepSchedule = "*/10 * * * *"

	defaultDisposableDomains = "mailinator.com,guerrillamail.com,10minutemail.com,tempmail.com,throwawaymail.com,yopmail.com,trashmail.com,sharklasers.com"
)

// Config carries all runtime settings for the allocation core. Engines receive
// it (or slices of it) at construction time; nothing reads the environment
// after startup.
type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	// Pricing
	BasePrice    int
	PriceFloor   int
	PriceCeiling int

	// Quality gate
	MinQualityScore   int
	MinModelScore     int
	MinDescriptionLen int
	DuplicateWindow   time.Duration
	DisposableDomains []string

	// Scoring
	MLEnabled bool
	ModelPath string

	// Allocation
	DefaultMaxProviders int
	LeadTTL             time.Duration
	CandidateLimit      int
	OverfetchFactor     int

	// Marketplace listing cache
	CacheTTL time.Duration

	// Background sweeps
	ExpireSchedule  string
	ResweepSchedule string
}

// Load reads configuration from the environment. A .env file is honored when
// present so local runs match the deployed shape.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = getEnv("HTTP_ADDR", defaultHTTPAddr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", defaultDatabaseURL)
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.BasePrice, err = parseIntEnv("PRICING_BASE", defaultBasePrice); err != nil {
		return nil, err
	}
	if cfg.PriceFloor, err = parseIntEnv("PRICING_FLOOR", defaultPriceFloor); err != nil {
		return nil, err
	}
	if cfg.PriceCeiling, err = parseIntEnv("PRICING_CEILING", defaultPriceCeiling); err != nil {
		return nil, err
	}
	if cfg.MinQualityScore, err = parseIntEnv("GATE_MIN_SCORE", defaultMinQualityScore); err != nil {
		return nil, err
	}
	if cfg.MinModelScore, err = parseIntEnv("GATE_MIN_MODEL_SCORE", defaultMinModelScore); err != nil {
		return nil, err
	}
	if cfg.MinDescriptionLen, err = parseIntEnv("GATE_MIN_DESCRIPTION", defaultMinDescription); err != nil {
		return nil, err
	}
	if cfg.DuplicateWindow, err = parseDurationEnv("GATE_DUPLICATE_WINDOW", defaultDuplicateWindow); err != nil {
		return nil, err
	}
	if cfg.DefaultMaxProviders, err = parseIntEnv("LEAD_MAX_PROVIDERS", defaultMaxProviders); err != nil {
		return nil, err
	}
	if cfg.LeadTTL, err = parseDurationEnv("LEAD_TTL", defaultLeadTTL); err != nil {
		return nil, err
	}
	if cfg.CandidateLimit, err = parseIntEnv("MATCH_CANDIDATE_LIMIT", defaultCandidateLimit); err != nil {
		return nil, err
	}
	if cfg.OverfetchFactor, err = parseIntEnv("MATCH_OVERFETCH", defaultOverfetch); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = parseDurationEnv("LISTING_CACHE_TTL", defaultCacheTTL); err != nil {
		return nil, err
	}

	cfg.MLEnabled = parseBoolEnv("ML_ENABLED", false)
	cfg.ModelPath = strings.TrimSpace(os.Getenv("ML_MODEL_PATH"))
	cfg.ExpireSchedule = getEnv("SWEEP_EXPIRE_SCHEDULE", defaultExpireSchedule)
	cfg.ResweepSchedule = getEnv("SWEEP_RESWEEP_SCHEDULE", defaultResweepSchedule)

	for _, d := range strings.Split(getEnv("GATE_DISPOSABLE_DOMAINS", defaultDisposableDomains), ",") {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cfg.DisposableDomains = append(cfg.DisposableDomains, d)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func parseIntEnv(key, fallback string) (int, error) {
	raw := getEnv(key, fallback)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func parseBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}
