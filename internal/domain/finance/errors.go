package finance

import (
	"fmt"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// Error codes raised by the reimbursement ledger
const (
	CodeInvalidReference             = "INVALID_REFERENCE"
	CodeDuplicateActiveIncidentEvent = "DUPLICATE_ACTIVE_INCIDENT_EVENT"
	CodeDuplicateActiveBookingEvent  = "DUPLICATE_ACTIVE_BOOKING_EVENT"
	CodeInvalidTransition            = "INVALID_STATE"
	CodeNoEligibleCashflow           = "NO_ELIGIBLE_CASHFLOW"
	CodeIncidentAlreadySettled       = "INCIDENT_ALREADY_SETTLED"
	CodeNonCancellablePricing        = "NON_CANCELLABLE_PRICING"
	CodeRuleUnavailable              = "RULE_UNAVAILABLE"
	CodeLockNotAcquired              = "LOCK_NOT_ACQUIRED"
	CodeUnbalancedPricing            = "UNBALANCED_PRICING"
	CodeBatchInProgress              = "BATCH_IN_PROGRESS"
)

var (
	ErrInvalidReference = shared.NewDomainError(CodeInvalidReference,
		"a finance event must reference exactly one booking, collective booking or incident")
	ErrDuplicateActiveIncidentEvent = shared.NewDomainError(CodeDuplicateActiveIncidentEvent,
		"an active finance event already exists for this incident and motive")
	ErrDuplicateActiveBookingEvent = shared.NewDomainError(CodeDuplicateActiveBookingEvent,
		"an active finance event already exists for this booking")
	ErrInvalidTransition = shared.NewDomainError(CodeInvalidTransition,
		"status transition is not allowed")
	ErrNoEligibleCashflow = shared.NewDomainError(CodeNoEligibleCashflow,
		"no accepted cashflow left to invoice")
	ErrIncidentAlreadySettled = shared.NewDomainError(CodeIncidentAlreadySettled,
		"incident corrections have already been paid out")
	ErrNonCancellablePricing = shared.NewDomainError(CodeNonCancellablePricing,
		"a later pricing has already been settled and cannot be recomputed")
	ErrRuleUnavailable = shared.NewDomainError(CodeRuleUnavailable,
		"reimbursement rule could not be resolved")
	ErrLockNotAcquired = shared.NewDomainError(CodeLockNotAcquired,
		"lock is held by another worker")
	ErrUnbalancedPricing = shared.NewDomainError(CodeUnbalancedPricing,
		"pricing lines do not sum to the pricing amount")
	ErrBatchInProgress = shared.NewDomainError(CodeBatchInProgress,
		"a cashflow batch is already running")
)

// NewInvalidTransitionError describes a rejected status change
func NewInvalidTransitionError(entity string, from, to fmt.Stringer) *shared.DomainError {
	return ErrInvalidTransition.WithMessage(
		fmt.Sprintf("%s cannot move from %s to %s", entity, from, to))
}

// NewNotFoundError describes a missing ledger record
func NewNotFoundError(entity string, id fmt.Stringer) *shared.DomainError {
	return shared.ErrNotFound.WithMessage(fmt.Sprintf("%s %s not found", entity, id))
}
