package allocation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrNotMatchable       = errors.New("lead is not in a matchable state")
	ErrInvalidTransition  = errors.New("invalid assignment status transition")

	// Internal loop-control sentinels for the per-candidate transaction.
	errLeadFull           = errors.New("lead is at capacity")
	errAlreadyAssigned    = errors.New("provider already assigned to lead")
	errProviderIneligible = errors.New("provider no longer eligible")
	errUnlockRaced        = errors.New("unlock raced with a concurrent request")
)

// UnlockReason is the fixed enumerated set a failed unlock reports. Callers
// surface the reason to the provider; no raw internal error ever escapes.
type UnlockReason string

const (
	ReasonNotAvailable        UnlockReason = "not_available"
	ReasonNotEligible         UnlockReason = "not_eligible"
	ReasonInsufficientCredits UnlockReason = "insufficient_credits"
	ReasonTryAgain            UnlockReason = "try_again"
)

// UnlockError is the typed refusal returned by Unlock. Required/Available are
// set only for insufficient_credits.
type UnlockError struct {
	Reason    UnlockReason
	Message   string
	Required  int64
	Available int64
}

func (e *UnlockError) Error() string {
	return fmt.Sprintf("unlock refused (%s): %s", e.Reason, e.Message)
}

// asBusyRefusal converts contention failures into the retryable typed
// refusal, so a caller racing on a hot lead sees try_again rather than a raw
// driver error. Returns nil for every other error.
func asBusyRefusal(err error) *UnlockError {
	if err == nil {
		return nil
	}
	if errors.Is(err, errUnlockRaced) || isLockTimeout(err) {
		return &UnlockError{
			Reason:  ReasonTryAgain,
			Message: "lead is busy, try again",
		}
	}
	return nil
}

// isLockTimeout recognizes a bounded lock-wait failure: SQLSTATE 55P03 on
// Postgres, the busy error on sqlite.
func isLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "lock timeout") || strings.Contains(msg, "lock_timeout") ||
		strings.Contains(msg, "database is locked")
}

// isUniqueViolation recognizes a unique-constraint insert failure across the
// supported drivers: pgconn error 23505 on Postgres, gorm's translated
// sentinel, and the sqlite message for local development.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}
