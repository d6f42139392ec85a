package marketplace

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/geo"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/pkg/cache"
)

// Service is the provider-facing surface: browse available leads, unlock
// contact details, track assignment progress, manage credits.
type Service struct {
	leads     *lead.Repository
	providers *provider.Repository
	engine    *allocation.Engine
	matcher   *geo.Matcher
	pricer    *pricing.Engine
	ledger    *credit.Ledger
	listings  *cache.ListingCache
	logger    *zap.Logger
}

func NewService(
	leads *lead.Repository,
	providers *provider.Repository,
	engine *allocation.Engine,
	matcher *geo.Matcher,
	pricer *pricing.Engine,
	ledger *credit.Ledger,
	listings *cache.ListingCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		leads:     leads,
		providers: providers,
		engine:    engine,
		matcher:   matcher,
		pricer:    pricer,
		ledger:    ledger,
		listings:  listings,
		logger:    logger,
	}
}

// AvailableLeads returns the provider's browse feed through the listing
// cache. Prices are informational until unlock and are computed per provider
// in one batch against a single market snapshot.
func (s *Service) AvailableLeads(ctx context.Context, providerID uuid.UUID, filters ListFilters) ([]AvailableLead, error) {
	key := cache.Key(providerID.String(), map[string]string{
		"category": filters.Category,
		"limit":    strconv.Itoa(filters.Limit),
	})

	var cached []AvailableLead
	if s.listings.Get(ctx, key, &cached) {
		return cached, nil
	}

	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	categories := p.Categories
	if filters.Category != "" {
		if !p.ServesCategory(filters.Category) {
			return []AvailableLead{}, nil
		}
		categories = []string{filters.Category}
	}
	if len(categories) == 0 {
		return []AvailableLead{}, nil
	}

	now := time.Now()
	rows, err := s.leads.ListAvailableForCategory(ctx, categories, providerID, now, filters.Limit)
	if err != nil {
		return nil, err
	}

	matched := rows[:0]
	for i := range rows {
		if s.matcher.IsMatch(&rows[i], p) {
			matched = append(matched, rows[i])
		}
	}

	prices := s.pricer.PriceBatch(matched, p, now)
	out := make([]AvailableLead, 0, len(matched))
	for i := range matched {
		l := &matched[i]
		out = append(out, AvailableLead{
			LeadID:       l.ID.String(),
			Category:     l.Category,
			Title:        l.Title,
			Suburb:       l.Suburb,
			City:         l.City,
			BudgetTier:   l.BudgetTier,
			Urgency:      l.Urgency,
			QualityScore: l.QualityScore,
			Price:        prices[l.ID.String()],
			ClaimStatus:  "available",
			SlotsLeft:    l.RemainingSlots(),
			PostedAt:     l.CreatedAt,
		})
	}

	s.listings.Set(ctx, key, out)
	return out, nil
}

// Unlock charges the provider and reveals contact details; the heavy lifting
// is the allocation engine's atomic unit. A successful first-time unlock
// changes availability, so the listing cache is dropped.
func (s *Service) Unlock(ctx context.Context, leadID, providerID uuid.UUID) (*allocation.UnlockResult, error) {
	res, err := s.engine.Unlock(ctx, leadID, providerID)
	if err != nil {
		return nil, err
	}

	if !res.AlreadyUnlocked {
		if err := s.listings.Invalidate(ctx); err != nil {
			s.logger.Warn("listing cache invalidation failed", zap.Error(err))
		}
	}
	return res, nil
}

func (s *Service) AllocationStatus(ctx context.Context, leadID uuid.UUID) (*allocation.Status, error) {
	return s.engine.AllocationStatus(ctx, leadID)
}

func (s *Service) Assignments(ctx context.Context, providerID uuid.UUID, limit int) ([]allocation.Assignment, error) {
	return s.engine.ListForProvider(ctx, providerID, limit)
}

func (s *Service) Progress(ctx context.Context, assignmentID, providerID uuid.UUID, status allocation.AssignmentStatus) (*allocation.Assignment, error) {
	return s.engine.ProgressAssignment(ctx, assignmentID, providerID, status)
}

// TopUp credits a provider account. Deposit verification against the payment
// gateway happens upstream; this only moves the ledger.
func (s *Service) TopUp(ctx context.Context, providerID uuid.UUID, amount int64) (int64, error) {
	if _, err := s.ledger.Credit(ctx, providerID, amount, "topup"); err != nil {
		return 0, err
	}
	return s.ledger.Balance(ctx, providerID)
}

func (s *Service) Transactions(ctx context.Context, providerID uuid.UUID, limit int) ([]credit.Transaction, error) {
	return s.ledger.ListTransactions(ctx, providerID, limit)
}

func (s *Service) Balance(ctx context.Context, providerID uuid.UUID) (int64, error) {
	return s.ledger.Balance(ctx, providerID)
}
