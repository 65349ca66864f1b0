package enums

import "fmt"

// RecoveryReason documents why stranded funds were extracted from vault
// custody. Purely descriptive; never drives control flow.
type RecoveryReason string

const (
	// RecoveryReasonAccidentalTransfer covers funds sent to the vault by
	// mistake with no associated subscription.
	RecoveryReasonAccidentalTransfer RecoveryReason = "accidental_transfer"
	// RecoveryReasonDeprecatedFlow covers funds left behind by retired
	// flows or logic errors.
	RecoveryReasonDeprecatedFlow RecoveryReason = "deprecated_flow"
	// RecoveryReasonUnreachableSubscriber covers funds from cancelled
	// subscriptions whose owner can no longer be reached.
	RecoveryReasonUnreachableSubscriber RecoveryReason = "unreachable_subscriber"
)

var validRecoveryReasons = []RecoveryReason{
	RecoveryReasonAccidentalTransfer,
	RecoveryReasonDeprecatedFlow,
	RecoveryReasonUnreachableSubscriber,
}

// String implements fmt.Stringer.
func (r RecoveryReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r RecoveryReason) IsValid() bool {
	for _, candidate := range validRecoveryReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRecoveryReason converts raw input into a RecoveryReason.
func ParseRecoveryReason(value string) (RecoveryReason, error) {
	for _, candidate := range validRecoveryReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recovery reason %q", value)
}
