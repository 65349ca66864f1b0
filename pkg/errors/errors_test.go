package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code     Code
		status   int
		wireCode uint32
	}{
		{CodeNotFound, http.StatusNotFound, 404},
		{CodeUnauthorized, http.StatusUnauthorized, 401},
		{CodeBelowMinimumTopup, http.StatusBadRequest, 402},
		{CodeBelowMerchantMinimum, http.StatusBadRequest, 410},
		{CodeInvalidTransition, http.StatusUnprocessableEntity, 400},
		{CodeNotActive, http.StatusUnprocessableEntity, 1002},
		{CodeInsufficientBalance, http.StatusPaymentRequired, 1003},
		{CodeInsufficientPrepaidBalance, http.StatusPaymentRequired, 1010},
		{CodeUsageNotEnabled, http.StatusUnprocessableEntity, 1009},
		{CodeReplay, http.StatusConflict, 1007},
		{CodeInvalidAmount, http.StatusBadRequest, 1006},
		{CodeInvalidRecoveryAmount, http.StatusBadRequest, 1008},
		{CodeOverflow, http.StatusUnprocessableEntity, 403},
		{CodeUnderflow, http.StatusUnprocessableEntity, 1004},
		{CodeInsufficientAllowance, http.StatusPaymentRequired, 405},
		{CodeTransferFailed, http.StatusBadGateway, 406},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: http status = %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.WireCode != tc.wireCode {
			t.Fatalf("%s: wire code = %d, want %d", tc.code, meta.WireCode, tc.wireCode)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NO_SUCH_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected fallback status %d", meta.HTTPStatus)
	}
}

func TestWireCode(t *testing.T) {
	if got := WireCode(nil); got != 0 {
		t.Fatalf("nil error wire code = %d, want 0", got)
	}
	if got := WireCode(New(CodeInsufficientBalance, "short")); got != 1003 {
		t.Fatalf("wire code = %d, want 1003", got)
	}
	if got := WireCode(fmt.Errorf("plain")); got != 0 {
		t.Fatalf("untyped error wire code = %d, want 0", got)
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Wrap(CodeTransferFailed, cause, "transfer tokens")

	typed := As(err)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeTransferFailed {
		t.Fatalf("code = %s", typed.Code())
	}
	if typed.Unwrap() != cause {
		t.Fatal("cause not preserved")
	}
	if !Is(err, CodeTransferFailed) {
		t.Fatal("Is should match the code")
	}
	if Is(err, CodeNotFound) {
		t.Fatal("Is matched the wrong code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientBalance, "prepaid too low").WithDetails(map[string]string{
		"available": "100",
		"required":  "250",
	})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("details type %T", err.Details())
	}
	if details["required"] != "250" {
		t.Fatalf("details = %v", details)
	}
}
