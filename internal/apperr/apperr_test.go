package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		http int
		grpc codes.Code
	}{
		{"validation", Invalid("title", "required"), http.StatusBadRequest, codes.InvalidArgument},
		{"not found", NotFound("meeting"), http.StatusNotFound, codes.NotFound},
		{"conflict", Conflict("duplicate", nil), http.StatusConflict, codes.AlreadyExists},
		{"unauthorized", Unauthorized("Invalid token"), http.StatusUnauthorized, codes.Unauthenticated},
		{"forbidden", Forbidden("nope"), http.StatusForbidden, codes.PermissionDenied},
		{"unavailable", Unavailable(errors.New("timeout")), http.StatusServiceUnavailable, codes.Unavailable},
		{"rate limited", RateLimited(), http.StatusTooManyRequests, codes.ResourceExhausted},
		{"store", Store(errors.New("boom")), http.StatusInternalServerError, codes.Internal},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.http {
				t.Errorf("http: got %d, want %d", got, tt.http)
			}
			if got := GRPCCode(tt.err); got != tt.grpc {
				t.Errorf("grpc: got %v, want %v", got, tt.grpc)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("load meeting: %w", NotFound("meeting"))
	if !Is(err, KindNotFound) {
		t.Fatalf("expected not found kind, got %v", KindOf(err))
	}
	if Public(err) != "meeting not found" {
		t.Errorf("public message: %q", Public(err))
	}
}

func TestStoreErrorsHideInternals(t *testing.T) {
	err := Store(errors.New(`relation "meetings" does not exist`))
	if Public(err) != "internal server error" {
		t.Errorf("leaked internals: %q", Public(err))
	}
}

func TestValidationKeepsAllFields(t *testing.T) {
	err := Validation(
		FieldError{Field: "title", Message: "required"},
		FieldError{Field: "slot_id", Message: "must be a positive integer"},
	)
	if n := len(FieldsOf(err)); n != 2 {
		t.Fatalf("expected 2 field errors, got %d", n)
	}
}
