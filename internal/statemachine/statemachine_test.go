package statemachine

import (
	"testing"

	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

func TestValidateTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    enums.SubscriptionStatus
		to      enums.SubscriptionStatus
		allowed bool
	}{
		{"active to paused", enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused, true},
		{"active to cancelled", enums.SubscriptionStatusActive, enums.SubscriptionStatusCancelled, true},
		{"active to insufficient", enums.SubscriptionStatusActive, enums.SubscriptionStatusInsufficientBalance, true},
		{"paused to active", enums.SubscriptionStatusPaused, enums.SubscriptionStatusActive, true},
		{"paused to cancelled", enums.SubscriptionStatusPaused, enums.SubscriptionStatusCancelled, true},
		{"paused to insufficient", enums.SubscriptionStatusPaused, enums.SubscriptionStatusInsufficientBalance, false},
		{"insufficient to active", enums.SubscriptionStatusInsufficientBalance, enums.SubscriptionStatusActive, true},
		{"insufficient to cancelled", enums.SubscriptionStatusInsufficientBalance, enums.SubscriptionStatusCancelled, true},
		{"insufficient to paused", enums.SubscriptionStatusInsufficientBalance, enums.SubscriptionStatusPaused, false},
		{"cancelled to active", enums.SubscriptionStatusCancelled, enums.SubscriptionStatusActive, false},
		{"cancelled to paused", enums.SubscriptionStatusCancelled, enums.SubscriptionStatusPaused, false},
		{"cancelled to insufficient", enums.SubscriptionStatusCancelled, enums.SubscriptionStatusInsufficientBalance, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.from, tc.to)
			if tc.allowed && err != nil {
				t.Fatalf("expected transition to be allowed, got %v", err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatal("expected transition to be rejected")
				}
				if !pkgerrors.Is(err, pkgerrors.CodeInvalidTransition) {
					t.Fatalf("expected invalid transition code, got %v", err)
				}
			}
		})
	}
}

func TestValidateSelfTransitionIsNoop(t *testing.T) {
	for _, status := range []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusCancelled,
		enums.SubscriptionStatusInsufficientBalance,
	} {
		if err := Validate(status, status); err != nil {
			t.Fatalf("self transition for %s: %v", status, err)
		}
	}
}

func TestValidateRejectsUnknownStatus(t *testing.T) {
	if err := Validate("frozen", enums.SubscriptionStatusActive); err == nil {
		t.Fatal("expected unknown source status to be rejected")
	}
	if err := Validate(enums.SubscriptionStatusActive, "frozen"); err == nil {
		t.Fatal("expected unknown target status to be rejected")
	}
}

func TestAllowedTargets(t *testing.T) {
	targets := AllowedTargets(enums.SubscriptionStatusPaused)
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets from paused, got %d", len(targets))
	}

	// mutating the copy must not leak into the table
	targets[0] = enums.SubscriptionStatusInsufficientBalance
	if CanTransition(enums.SubscriptionStatusPaused, enums.SubscriptionStatusInsufficientBalance) {
		t.Fatal("transition table was mutated through AllowedTargets")
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(enums.SubscriptionStatusCancelled) {
		t.Fatal("cancelled should be terminal")
	}
	if IsTerminal(enums.SubscriptionStatusActive) {
		t.Fatal("active should not be terminal")
	}
	if IsTerminal("frozen") {
		t.Fatal("unknown status should not be terminal")
	}
}
