package allocation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/geo"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/notification"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
	"leadmarket/internal/domain/scoring"
)

// Compatibility blends conversion probability with lead quality; the weights
// are fixed across the marketplace so rankings stay comparable.
const (
	compatConversionWeight = 0.6
	compatQualityWeight    = 0.4
)

type Config struct {
	// CandidateLimit caps one matching pass regardless of capacity.
	CandidateLimit int
	// OverfetchFactor ranks capacity*factor candidates so non-openers can be
	// passed over on later sweeps.
	OverfetchFactor int
}

// Engine owns the allocation lifecycle: eligibility, ranking, the bounded
// assignment pass, and the atomic unlock.
type Engine struct {
	db        *gorm.DB
	providers *provider.Repository
	matcher   *geo.Matcher
	scorer    scoring.Engine
	pricer    *pricing.Engine
	ledger    *credit.Ledger
	notifier  notification.Notifier
	logger    *zap.Logger
	cfg       Config
}

func NewEngine(
	db *gorm.DB,
	providers *provider.Repository,
	matcher *geo.Matcher,
	scorer scoring.Engine,
	pricer *pricing.Engine,
	ledger *credit.Ledger,
	notifier notification.Notifier,
	logger *zap.Logger,
	cfg Config,
) *Engine {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 10
	}
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = 3
	}
	return &Engine{
		db:        db,
		providers: providers,
		matcher:   matcher,
		scorer:    scorer,
		pricer:    pricer,
		ledger:    ledger,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

// Candidate is a ranked eligible provider with its allocation-time price.
type Candidate struct {
	Provider           provider.Provider
	CompatibilityScore float64
	Price              int
}

// Result summarizes one allocation pass.
type Result struct {
	LeadID        uuid.UUID
	Created       []Assignment
	AssignedCount int
	Full          bool
}

// FindEligibleProviders filters the verified-provider set down to providers
// that can receive this lead, ranks them by compatibility, and truncates to
// min(CandidateLimit, capacity*OverfetchFactor).
func (e *Engine) FindEligibleProviders(ctx context.Context, l *lead.Lead) ([]Candidate, error) {
	verified, err := e.providers.ListVerified(ctx)
	if err != nil {
		return nil, err
	}

	assigned, err := e.assignedProviders(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	active, err := e.activeAssignmentCounts(ctx)
	if err != nil {
		return nil, err
	}

	snap := pricing.MarketSnapshot{At: time.Now()}
	candidates := make([]Candidate, 0, len(verified))
	for i := range verified {
		p := &verified[i]

		if !p.ServesCategory(l.Category) {
			continue
		}
		if assigned[p.ID] {
			continue
		}
		if p.CreditBalance <= 0 {
			continue
		}
		if p.MaxActiveLeads > 0 && active[p.ID] >= p.MaxActiveLeads {
			continue
		}
		if p.MinJobValue > 0 && l.MinJobValue > 0 && l.MinJobValue < p.MinJobValue {
			continue
		}
		if !e.matcher.IsMatch(l, p) {
			continue
		}

		conv := e.scorer.ConversionProbability(l, p)
		compat := compatConversionWeight*conv + compatQualityWeight*float64(l.QualityScore)/100.0
		candidates = append(candidates, Candidate{
			Provider:           *p,
			CompatibilityScore: compat,
			Price:              e.pricer.Price(l, p, snap),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		if a.Provider.Tier.Weight() != b.Provider.Tier.Weight() {
			return a.Provider.Tier.Weight() > b.Provider.Tier.Weight()
		}
		if a.Provider.Rating != b.Provider.Rating {
			return a.Provider.Rating > b.Provider.Rating
		}
		if a.Provider.ResponseTimeHours != b.Provider.ResponseTimeHours {
			return a.Provider.ResponseTimeHours < b.Provider.ResponseTimeHours
		}
		return a.Provider.ID.String() < b.Provider.ID.String()
	})

	limit := e.cfg.CandidateLimit
	if over := l.MaxProviders * e.cfg.OverfetchFactor; over < limit {
		limit = over
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Allocate runs one matching pass for the lead: rank candidates, then create
// assignments in order until capacity. Per-candidate failures are logged and
// skipped; an empty candidate list is a normal terminal outcome and leaves the
// lead eligible for later sweeps.
func (e *Engine) Allocate(ctx context.Context, leadID uuid.UUID) (*Result, error) {
	l, err := e.getLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if l.Status != lead.StatusVerified && l.Status != lead.StatusAllocated {
		return nil, ErrNotMatchable
	}
	if !time.Now().Before(l.ExpiresAt) {
		return nil, ErrNotMatchable
	}

	candidates, err := e.FindEligibleProviders(ctx, l)
	if err != nil {
		return nil, err
	}

	result := &Result{LeadID: l.ID, AssignedCount: l.AssignedCount}
	if len(candidates) == 0 {
		e.logger.Info("no eligible providers",
			zap.String("lead_id", l.ID.String()),
			zap.String("category", l.Category))
		return result, nil
	}

	matches := make([]notification.Match, 0, len(candidates))
	for _, cand := range candidates {
		a, err := e.assignOne(ctx, l.ID, cand)
		switch {
		case err == nil:
			result.Created = append(result.Created, *a)
			result.AssignedCount++
			matches = append(matches, notification.Match{
				ProviderID:         cand.Provider.ID,
				CompatibilityScore: cand.CompatibilityScore,
			})
		case errors.Is(err, errLeadFull):
			result.Full = true
		case errors.Is(err, errAlreadyAssigned), errors.Is(err, errProviderIneligible):
			e.logger.Debug("candidate skipped",
				zap.String("lead_id", l.ID.String()),
				zap.String("provider_id", cand.Provider.ID.String()),
				zap.Error(err))
		default:
			e.logger.Warn("assignment failed, continuing",
				zap.String("lead_id", l.ID.String()),
				zap.String("provider_id", cand.Provider.ID.String()),
				zap.Error(err))
		}
		if result.Full {
			break
		}
	}

	if fresh, err := e.getLead(ctx, leadID); err == nil {
		result.AssignedCount = fresh.AssignedCount
		result.Full = fresh.Status == lead.StatusFullyAllocated
	}

	if len(matches) > 0 && e.notifier != nil {
		e.notifier.OnAllocated(ctx, l, matches)
	}
	return result, nil
}

// assignOne creates exactly one assignment inside a single transaction: lock
// the lead row, re-check capacity and provider eligibility, insert the
// assignment (the unique pair index rejects double-assignment), and bump
// assigned_count under the same lock.
func (e *Engine) assignOne(ctx context.Context, leadID uuid.UUID, cand Candidate) (*Assignment, error) {
	var created Assignment

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := lockLead(tx, leadID)
		if err != nil {
			return err
		}
		if cur.AssignedCount >= cur.MaxProviders {
			return errLeadFull
		}
		if cur.Status != lead.StatusVerified && cur.Status != lead.StatusAllocated {
			return errLeadFull
		}

		// Matching ran outside any lock; re-check the provider at creation
		// time in case it was suspended or capped in between.
		var p provider.Provider
		if err := tx.Where("id = ?", cand.Provider.ID).First(&p).Error; err != nil {
			return err
		}
		if !p.IsVerified() || p.CreditBalance <= 0 {
			return errProviderIneligible
		}

		created = Assignment{
			LeadID:             leadID,
			ProviderID:         cand.Provider.ID,
			Status:             StatusAssigned,
			Price:              cand.Price,
			CompatibilityScore: cand.CompatibilityScore,
		}
		if err := tx.Create(&created).Error; err != nil {
			if isUniqueViolation(err) {
				return errAlreadyAssigned
			}
			return err
		}

		return bumpAssignedCount(tx, cur)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// bumpAssignedCount increments under a guard so concurrent passes can never
// push assigned_count past capacity, then applies the status transition.
// Caller must hold the lead row lock.
func bumpAssignedCount(tx *gorm.DB, cur *lead.Lead) error {
	res := tx.Model(&lead.Lead{}).
		Where("id = ? AND assigned_count < max_providers", cur.ID).
		UpdateColumn("assigned_count", gorm.Expr("assigned_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errLeadFull
	}

	status := lead.StatusAllocated
	if cur.AssignedCount+1 >= cur.MaxProviders {
		status = lead.StatusFullyAllocated
	}
	return tx.Model(&lead.Lead{}).Where("id = ?", cur.ID).
		Update("status", status).Error
}

func (e *Engine) getLead(ctx context.Context, id uuid.UUID) (*lead.Lead, error) {
	var l lead.Lead
	err := e.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lead.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (e *Engine) assignedProviders(ctx context.Context, leadID uuid.UUID) (map[uuid.UUID]bool, error) {
	var rows []Assignment
	if err := e.db.WithContext(ctx).
		Select("provider_id").
		Where("lead_id = ?", leadID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(rows))
	for _, r := range rows {
		out[r.ProviderID] = true
	}
	return out, nil
}

func (e *Engine) activeAssignmentCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	type row struct {
		ProviderID uuid.UUID
		N          int
	}
	var rows []row
	err := e.db.WithContext(ctx).
		Model(&Assignment{}).
		Select("provider_id, count(*) as n").
		Where("status IN ?", []AssignmentStatus{
			StatusAssigned, StatusViewed, StatusUnlocked, StatusContacted, StatusQuoted,
		}).
		Group("provider_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.ProviderID] = r.N
	}
	return out, nil
}

// lockLead reads the lead row under FOR UPDATE. On Postgres the surrounding
// transaction sets a bounded lock wait first, so contention on a popular lead
// fails fast instead of queueing.
func lockLead(tx *gorm.DB, id uuid.UUID) (*lead.Lead, error) {
	setLockTimeout(tx)

	var l lead.Lead
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, lead.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func setLockTimeout(tx *gorm.DB) {
	if tx.Dialector.Name() == "postgres" {
		tx.Exec("SET LOCAL lock_timeout = '2s'")
	}
}
