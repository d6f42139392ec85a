package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressAssignment advances a provider's assignment through the state
// machine (viewed, contacted, quoted, won, lost, no_response). The unlocked
// state is owned by Unlock and cannot be reached here.
func (e *Engine) ProgressAssignment(ctx context.Context, assignmentID, providerID uuid.UUID, next AssignmentStatus) (*Assignment, error) {
	if next == StatusUnlocked || next == StatusAssigned {
		return nil, ErrInvalidTransition
	}

	var updated Assignment
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asg Assignment
		err := tx.Where("id = ? AND provider_id = ?", assignmentID, providerID).First(&asg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		if err != nil {
			return err
		}

		if !asg.Status.CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		updates := map[string]any{"status": next}
		if next == StatusViewed && asg.ViewedAt == nil {
			updates["viewed_at"] = time.Now()
		}
		if err := tx.Model(&Assignment{}).Where("id = ?", asg.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", asg.ID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListForProvider returns a provider's assignments, newest first.
func (e *Engine) ListForProvider(ctx context.Context, providerID uuid.UUID, limit int) ([]Assignment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []Assignment
	err := e.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("assigned_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetByPair returns the assignment for a (lead, provider) pair, if any.
func (e *Engine) GetByPair(ctx context.Context, leadID, providerID uuid.UUID) (*Assignment, error) {
	var asg Assignment
	err := e.db.WithContext(ctx).
		Where("lead_id = ? AND provider_id = ?", leadID, providerID).
		First(&asg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &asg, nil
}

// Status is the public allocation state of a lead.
type Status struct {
	LeadID        uuid.UUID `json:"lead_id"`
	AssignedCount int       `json:"assigned_count"`
	Capacity      int       `json:"capacity"`
	IsAvailable   bool      `json:"is_available"`
}

func (e *Engine) AllocationStatus(ctx context.Context, leadID uuid.UUID) (*Status, error) {
	l, err := e.getLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return &Status{
		LeadID:        l.ID,
		AssignedCount: l.AssignedCount,
		Capacity:      l.MaxProviders,
		IsAvailable:   l.IsAvailable(time.Now()),
	}, nil
}
