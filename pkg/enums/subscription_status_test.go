package enums

import "testing"

// Stored column values; the schema default and the sweep's status filter
// both depend on these exact strings.
func TestSubscriptionStatusStoredValues(t *testing.T) {
	want := map[SubscriptionStatus]string{
		SubscriptionStatusActive:              "active",
		SubscriptionStatusPaused:              "paused",
		SubscriptionStatusCancelled:           "cancelled",
		SubscriptionStatusInsufficientBalance: "insufficient_balance",
	}
	for status, value := range want {
		if status.String() != value {
			t.Fatalf("status %v stored as %q, want %q", status, status.String(), value)
		}
	}
}

func TestSubscriptionStatusIsValid(t *testing.T) {
	for _, status := range validSubscriptionStatuses {
		if !status.IsValid() {
			t.Fatalf("%v should be valid", status)
		}
	}
	if SubscriptionStatus("suspended").IsValid() {
		t.Fatal("unknown status should be invalid")
	}
}

func TestParseSubscriptionStatus(t *testing.T) {
	status, err := ParseSubscriptionStatus("insufficient_balance")
	if err != nil || status != SubscriptionStatusInsufficientBalance {
		t.Fatalf("parse = %v, %v", status, err)
	}
	if _, err := ParseSubscriptionStatus("deleted"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
