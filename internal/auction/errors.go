package auction

import (
	"errors"
	"fmt"
)

// Kind classifies why an intent was rejected.
type Kind string

const (
	// KindValidation rejects an intent whose values break a bidding rule.
	KindValidation Kind = "validation"
	// KindPrecondition rejects an intent that does not fit the floor state.
	KindPrecondition Kind = "precondition"
	// KindNotFound rejects an intent that names an unknown player or team.
	KindNotFound Kind = "not_found"
)

// Rejection is returned when an intent is refused. The snapshot it was
// evaluated against is left unchanged.
type Rejection struct {
	Kind   Kind
	Code   string
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Is matches rejections by code so a rejection with a dynamic reason still
// satisfies errors.Is against its sentinel.
func (r *Rejection) Is(target error) bool {
	var t *Rejection
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == r.Code
}

func reject(kind Kind, code, reason string) *Rejection {
	return &Rejection{Kind: kind, Code: code, Reason: reason}
}

// withReason returns a copy of sentinel carrying a more specific reason.
func withReason(sentinel *Rejection, format string, args ...any) *Rejection {
	return &Rejection{Kind: sentinel.Kind, Code: sentinel.Code, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the rejection kind of err, or "" if err is not a rejection.
func KindOf(err error) Kind {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind
	}
	return ""
}

// Validation rejections.
var (
	ErrBidTooLow          = reject(KindValidation, "bid_too_low", "bid is below the minimum")
	ErrInsufficientBudget = reject(KindValidation, "insufficient_budget", "insufficient budget")
	ErrCombinedCap        = reject(KindValidation, "combined_cap", "combined category A+B cap exceeded")
	ErrSafetyNet          = reject(KindValidation, "safety_net", "bid leaves too little to complete the squad")
	ErrInvalidAmount      = reject(KindValidation, "invalid_amount", "amount must be positive")
	ErrInterestLimit      = reject(KindValidation, "interest_limit", "interest limit reached")
	ErrInvalidImport      = reject(KindValidation, "invalid_import", "invalid import")
	ErrInvalidPhase       = reject(KindValidation, "invalid_phase", "unknown phase")
)

// Precondition rejections.
var (
	ErrNoActiveLot         = reject(KindPrecondition, "no_active_lot", "no lot is on the floor")
	ErrLotActive           = reject(KindPrecondition, "lot_active", "a lot is on the floor")
	ErrLotMismatch         = reject(KindPrecondition, "lot_mismatch", "a different lot is on the floor")
	ErrNoBidder            = reject(KindPrecondition, "no_bidder", "no bid has been placed")
	ErrSelfOutbid          = reject(KindPrecondition, "self_outbid", "team is already the highest bidder")
	ErrNothingToUndo       = reject(KindPrecondition, "nothing_to_undo", "nothing to undo")
	ErrSetupIncomplete     = reject(KindPrecondition, "setup_incomplete", "setup needs at least one player and two teams")
	ErrInterestLocked      = reject(KindPrecondition, "interest_locked", "interest marking is locked")
	ErrNotInterestEligible = reject(KindPrecondition, "not_interest_eligible", "only available category C players can be marked")
)

// Lookup rejections.
var (
	ErrPlayerNotFound = reject(KindNotFound, "player_not_found", "player not found")
	ErrTeamNotFound   = reject(KindNotFound, "team_not_found", "team not found")
)
