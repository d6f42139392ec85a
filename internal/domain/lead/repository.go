package lead

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles lead persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, l *Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	var l Lead
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountRecentByClient counts other leads from the same client in the same
// category created after the cutoff. Used by the duplicate-submission rule.
func (r *Repository) CountRecentByClient(ctx context.Context, clientID uuid.UUID, category string, since time.Time, excludeID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Lead{}).
		Where("client_id = ? AND category = ? AND created_at >= ? AND id <> ?", clientID, category, since, excludeID).
		Count(&n).Error
	return n, err
}

// MarkVerified records the gate-approved quality score and releases the lead
// for matching.
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID, score int) error {
	return r.db.WithContext(ctx).
		Model(&Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quality_score":    score,
			"status":           StatusVerified,
			"rejection_reason": "",
		}).Error
}

// MarkRejected returns the lead to pending for manual review with the gate's
// reason code.
func (r *Repository) MarkRejected(ctx context.Context, id uuid.UUID, score int, reason string) error {
	return r.db.WithContext(ctx).
		Model(&Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quality_score":    score,
			"status":           StatusPending,
			"rejection_reason": reason,
		}).Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.db.WithContext(ctx).
		Model(&Lead{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ExpireStale transitions every overdue, still-open lead to expired and
// returns how many rows changed.
func (r *Repository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&Lead{}).
		Where("expires_at < ? AND status IN ?", now, []Status{
			StatusPending, StatusVerifying, StatusVerified, StatusAllocated,
		}).
		Update("status", StatusExpired)
	return res.RowsAffected, res.Error
}

// ListUnfilled returns open leads with spare capacity for the re-allocation
// sweep, oldest first.
func (r *Repository) ListUnfilled(ctx context.Context, now time.Time, limit int) ([]Lead, error) {
	var leads []Lead
	err := r.db.WithContext(ctx).
		Where("status IN ? AND assigned_count < max_providers AND expires_at > ?",
			[]Status{StatusVerified, StatusAllocated}, now).
		Order("created_at asc").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}

// ListAvailableForCategory returns open leads in the given categories that the
// provider has not been assigned yet. The marketplace browse feed builds on it.
func (r *Repository) ListAvailableForCategory(ctx context.Context, categories []string, excludeProvider uuid.UUID, now time.Time, limit int) ([]Lead, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var leads []Lead
	err := r.db.WithContext(ctx).
		Where("status IN ? AND assigned_count < max_providers AND expires_at > ? AND category IN ?",
			[]Status{StatusVerified, StatusAllocated}, now, categories).
		Where("id NOT IN (?)", r.db.
			Table("assignments").
			Select("lead_id").
			Where("provider_id = ?", excludeProvider)).
		Order("created_at desc").
		Limit(limit).
		Find(&leads).Error
	return leads, err
}
