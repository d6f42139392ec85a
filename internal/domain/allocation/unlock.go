package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leadmarket/internal/domain/credit"
	"leadmarket/internal/domain/lead"
	"leadmarket/internal/domain/pricing"
	"leadmarket/internal/domain/provider"
)

// ContactDetails is the payload a provider pays to reveal.
type ContactDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UnlockResult is returned on success, including idempotent replays of an
// unlock that already happened.
type UnlockResult struct {
	LeadID          uuid.UUID      `json:"lead_id"`
	ProviderID      uuid.UUID      `json:"provider_id"`
	AssignmentID    uuid.UUID      `json:"assignment_id"`
	Price           int            `json:"price"`
	AlreadyUnlocked bool           `json:"already_unlocked"`
	Contact         ContactDetails `json:"contact"`
}

// Unlock atomically charges a provider for a lead's contact details. The
// check (no prior UnlockRecord, sufficient balance) and the effect (debit,
// UnlockRecord, assignment transition) run in one transaction; any failure
// rolls back every step. A repeat call finds the UnlockRecord and returns the
// same payload without a second debit.
//
// Providers without a prior assignment can unlock too (marketplace browse):
// eligibility is re-checked and the assignment is created inside the same
// transaction.
func (e *Engine) Unlock(ctx context.Context, leadID, providerID uuid.UUID) (*UnlockResult, error) {
	res, err := e.unlockOnce(ctx, leadID, providerID)
	if errors.Is(err, errUnlockRaced) {
		// The competing request committed first; rerun to take the
		// idempotent replay path.
		res, err = e.unlockOnce(ctx, leadID, providerID)
	}
	if busy := asBusyRefusal(err); busy != nil {
		return nil, busy
	}
	return res, err
}

func (e *Engine) unlockOnce(ctx context.Context, leadID, providerID uuid.UUID) (*UnlockResult, error) {
	var result UnlockResult

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := lockLead(tx, leadID)
		if err != nil {
			return err
		}

		var p provider.Provider
		if err := tx.Where("id = ?", providerID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return provider.ErrProviderNotFound
			}
			return err
		}

		// Idempotence check comes first: an existing UnlockRecord means the
		// charge already happened and this call is a replay.
		var rec UnlockRecord
		err = tx.Where("lead_id = ? AND provider_id = ?", leadID, providerID).First(&rec).Error
		if err == nil {
			result = replayResult(cur, &rec)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		asg, err := e.findOrCreateAssignment(tx, cur, &p)
		if err != nil {
			return err
		}

		txn, err := e.ledger.DebitTx(tx, providerID, int64(asg.Price), "unlock:"+leadID.String())
		if err != nil {
			var insufficient *credit.InsufficientFundsError
			if errors.As(err, &insufficient) {
				return &UnlockError{
					Reason:    ReasonInsufficientCredits,
					Message:   "not enough credits to unlock this lead",
					Required:  insufficient.Required,
					Available: insufficient.Available,
				}
			}
			return err
		}

		record := UnlockRecord{
			LeadID:        leadID,
			ProviderID:    providerID,
			AssignmentID:  asg.ID,
			TransactionID: txn.ID,
			Amount:        int64(asg.Price),
		}
		if err := tx.Create(&record).Error; err != nil {
			if isUniqueViolation(err) {
				return errUnlockRaced
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&Assignment{}).Where("id = ?", asg.ID).
			Updates(map[string]any{
				"status":      StatusUnlocked,
				"unlocked_at": now,
			}).Error; err != nil {
			return err
		}

		result = UnlockResult{
			LeadID:       leadID,
			ProviderID:   providerID,
			AssignmentID: asg.ID,
			Price:        asg.Price,
			Contact: ContactDetails{
				Name:  cur.ContactName,
				Email: cur.ContactEmail,
				Phone: cur.ContactPhone,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("lead unlocked",
		zap.String("lead_id", leadID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Int("price", result.Price),
		zap.Bool("replay", result.AlreadyUnlocked))
	return &result, nil
}

// replayResult reconstructs the original success payload from the UnlockRecord.
func replayResult(cur *lead.Lead, rec *UnlockRecord) UnlockResult {
	return UnlockResult{
		LeadID:          rec.LeadID,
		ProviderID:      rec.ProviderID,
		AssignmentID:    rec.AssignmentID,
		Price:           int(rec.Amount),
		AlreadyUnlocked: true,
		Contact: ContactDetails{
			Name:  cur.ContactName,
			Email: cur.ContactEmail,
			Phone: cur.ContactPhone,
		},
	}
}

// findOrCreateAssignment returns the provider's assignment for the locked
// lead, creating one on the fly for the browse-and-buy flow when the provider
// is independently eligible. Caller holds the lead row lock.
func (e *Engine) findOrCreateAssignment(tx *gorm.DB, cur *lead.Lead, p *provider.Provider) (*Assignment, error) {
	var asg Assignment
	err := tx.Where("lead_id = ? AND provider_id = ?", cur.ID, p.ID).First(&asg).Error
	if err == nil {
		return &asg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !cur.IsAvailable(time.Now()) {
		return nil, &UnlockError{
			Reason:  ReasonNotAvailable,
			Message: "lead is no longer available",
		}
	}
	if !p.IsVerified() || !p.ServesCategory(cur.Category) || !e.matcher.IsMatch(cur, p) {
		return nil, &UnlockError{
			Reason:  ReasonNotEligible,
			Message: "lead is outside your categories or service area",
		}
	}

	asg = Assignment{
		LeadID:             cur.ID,
		ProviderID:         p.ID,
		Status:             StatusAssigned,
		Price:              e.pricer.Price(cur, p, pricing.MarketSnapshot{At: time.Now()}),
		CompatibilityScore: compatConversionWeight*e.scorer.ConversionProbability(cur, p) + compatQualityWeight*float64(cur.QualityScore)/100.0,
	}
	if err := tx.Create(&asg).Error; err != nil {
		if isUniqueViolation(err) {
			// Concurrent allocation pass inserted the pair between our read
			// and write; reread it.
			if err := tx.Where("lead_id = ? AND provider_id = ?", cur.ID, p.ID).First(&asg).Error; err != nil {
				return nil, err
			}
			return &asg, nil
		}
		return nil, err
	}

	if err := bumpAssignedCount(tx, cur); err != nil {
		return nil, err
	}
	return &asg, nil
}
