package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCode(t *testing.T) {
	if got := MakeCode(2, 3, 45); got != 203045 {
		t.Errorf("MakeCode(2, 3, 45) = %d, want 203045", got)
	}
	if got := MakeCode(0, 1, 1); got != 1001 {
		t.Errorf("MakeCode(0, 1, 1) = %d, want 1001", got)
	}
}

func TestWithMessageKeepsIdentity(t *testing.T) {
	derived := ErrInvalidParam.WithMessage("subject is required")

	if !errors.Is(derived, ErrInvalidParam) {
		t.Error("derived error lost its identity")
	}
	if derived.Message != "subject is required" {
		t.Errorf("message = %q", derived.Message)
	}
	// The base error is untouched.
	if ErrInvalidParam.Message != "Invalid parameter" {
		t.Errorf("base message mutated: %q", ErrInvalidParam.Message)
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrDatabase.WithCause(cause)

	if !errors.Is(err, ErrDatabase) {
		t.Error("wrapped error lost its identity")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestDistinctCodesDoNotMatch(t *testing.T) {
	if errors.Is(ErrTokenExpired, ErrTokenRevoked) {
		t.Error("distinct errors matched")
	}
}

func TestHTTPAndGRPCStatus(t *testing.T) {
	if got := ErrForbidden.HTTPStatus(); got != http.StatusForbidden {
		t.Errorf("HTTPStatus = %d, want 403", got)
	}
	if got := ErrForbidden.GRPCStatus(); got != codes.PermissionDenied {
		t.Errorf("GRPCStatus = %v, want PermissionDenied", got)
	}
	if got := (&Errno{}).HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("zero HTTPStatus = %d, want 500", got)
	}
}
