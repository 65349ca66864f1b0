package statemachine

import (
	"fmt"

	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

// allowed holds the directed transition edges. Self-transitions are not
// listed; Validate treats them as no-ops everywhere.
var allowed = map[enums.SubscriptionStatus][]enums.SubscriptionStatus{
	enums.SubscriptionStatusActive: {
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusCancelled,
		enums.SubscriptionStatusInsufficientBalance,
	},
	enums.SubscriptionStatusPaused: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusInsufficientBalance: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCancelled,
	},
	enums.SubscriptionStatusCancelled: {},
}

// Validate reports whether a subscription may move from one status to
// another. A transition to the current status is always permitted and
// callers should treat it as a no-op. Cancelled is terminal.
func Validate(from, to enums.SubscriptionStatus) error {
	if !from.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("unknown status %q", from))
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("unknown status %q", to))
	}
	if from == to {
		return nil
	}
	for _, target := range allowed[from] {
		if target == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot move from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}

// CanTransition is the boolean form of Validate.
func CanTransition(from, to enums.SubscriptionStatus) bool {
	return Validate(from, to) == nil
}

// AllowedTargets returns the statuses reachable from the given status,
// excluding the no-op self-transition. The result is a copy.
func AllowedTargets(from enums.SubscriptionStatus) []enums.SubscriptionStatus {
	targets := allowed[from]
	out := make([]enums.SubscriptionStatus, len(targets))
	copy(out, targets)
	return out
}

// IsTerminal reports whether no further transitions leave the status.
func IsTerminal(status enums.SubscriptionStatus) bool {
	return status.IsValid() && len(allowed[status]) == 0
}
