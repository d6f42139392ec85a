package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leadmarket/internal/domain/allocation"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/quality"
	"leadmarket/internal/domain/scoring"
	"leadmarket/internal/pkg/cache"
)

type Config struct {
	DefaultMaxProviders int
	LeadTTL             time.Duration
}

// Service runs the intake pipeline: persist → score → gate → allocate.
// The explicit Allocate call here replaces any implicit "lead saved" event
// coupling; notification happens inside the allocation pass.
type Service struct {
	leads    *lead.Repository
	scorer   scoring.Engine
	gate     *quality.Gate
	engine   *allocation.Engine
	listings *cache.ListingCache
	cfg      Config
	logger   *zap.Logger
}

func NewService(
	leads *lead.Repository,
	scorer scoring.Engine,
	gate *quality.Gate,
	engine *allocation.Engine,
	listings *cache.ListingCache,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.DefaultMaxProviders <= 0 {
		cfg.DefaultMaxProviders = 3
	}
	if cfg.LeadTTL <= 0 {
		cfg.LeadTTL = 30 * 24 * time.Hour
	}
	return &Service{
		leads:    leads,
		scorer:   scorer,
		gate:     gate,
		engine:   engine,
		listings: listings,
		cfg:      cfg,
		logger:   logger,
	}
}

// Submit persists the lead first — gating never blocks persistence — then
// scores it, runs the quality gate, and on a pass triggers the first
// allocation pass. A gate rejection returns the lead in pending with its
// reason; it is not an error.
func (s *Service) Submit(ctx context.Context, clientID uuid.UUID, req *SubmitLeadRequest) (*lead.Lead, error) {
	if !lead.IsValidCategory(req.Category) {
		return nil, lead.ErrInvalidCategory
	}

	now := time.Now()
	l := &lead.Lead{
		ClientID:     clientID,
		Category:     req.Category,
		Title:        req.Title,
		Description:  req.Description,
		Suburb:       req.Suburb,
		City:         req.City,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		BudgetTier:   budgetOrDefault(req.BudgetTier),
		Urgency:      urgencyOrDefault(req.Urgency),
		Intent:       intentOrDefault(req.Intent),
		PropertyType: lead.PropertyType(req.PropertyType),
		MinJobValue:  req.MinJobValue,
		Status:       lead.StatusPending,
		MaxProviders: s.cfg.DefaultMaxProviders,
		ExpiresAt:    now.Add(s.cfg.LeadTTL),
	}

	if err := s.leads.Create(ctx, l); err != nil {
		return nil, err
	}

	l.QualityScore = s.scorer.Score(l)

	verdict := s.gate.Evaluate(ctx, l)
	if !verdict.Passed {
		if err := s.leads.MarkRejected(ctx, l.ID, l.QualityScore, verdict.Reason); err != nil {
			return nil, err
		}
		l.Status = lead.StatusPending
		l.RejectionReason = verdict.Reason
		s.logger.Info("lead rejected by quality gate",
			zap.String("lead_id", l.ID.String()),
			zap.String("reason", verdict.Reason))
		return l, nil
	}

	if err := s.leads.MarkVerified(ctx, l.ID, l.QualityScore); err != nil {
		return nil, err
	}
	l.Status = lead.StatusVerified

	result, err := s.engine.Allocate(ctx, l.ID)
	if err != nil {
		// Matching failures never fail the submission; the re-allocation
		// sweep picks the lead up later.
		s.logger.Warn("initial allocation pass failed",
			zap.String("lead_id", l.ID.String()), zap.Error(err))
		return s.leads.GetByID(ctx, l.ID)
	}

	if len(result.Created) > 0 {
		if err := s.listings.Invalidate(ctx); err != nil {
			s.logger.Warn("listing cache invalidation failed", zap.Error(err))
		}
	}

	return s.leads.GetByID(ctx, l.ID)
}

// GetForClient returns a client's own lead for status polling.
func (s *Service) GetForClient(ctx context.Context, id, clientID uuid.UUID) (*lead.Lead, error) {
	l, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.ClientID != clientID {
		return nil, lead.ErrNotOwner
	}
	return l, nil
}

func budgetOrDefault(v string) lead.BudgetTier {
	if v == "" {
		return lead.BudgetNone
	}
	return lead.BudgetTier(v)
}

func urgencyOrDefault(v string) lead.Urgency {
	if v == "" {
		return lead.UrgencyFlexible
	}
	return lead.Urgency(v)
}

func intentOrDefault(v string) lead.Intent {
	if v == "" {
		return lead.IntentResearching
	}
	return lead.Intent(v)
}
