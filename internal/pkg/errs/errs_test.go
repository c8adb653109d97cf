package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestNewErrorFormatsDetails(t *testing.T) {
	err := NewError(ErrUnhandledType, "teleport")

	if err.Code != ErrUnhandledType {
		t.Fatalf("expected code %d, got %d", ErrUnhandledType, err.Code)
	}
	if err.Message != `Unhandled message type "teleport".` {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Status != http.StatusOK {
		t.Fatalf("expected default status 200, got %d", err.Status)
	}
}

func TestNewErrorUnknownCode(t *testing.T) {
	err := NewError(424242)
	if err.Code != ErrUnknown {
		t.Fatalf("expected unknown code fallback, got %d", err.Code)
	}
	if err.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", err.Status)
	}
}

func TestReasonOfWrapped(t *testing.T) {
	wrapped := fmt.Errorf("dispatch: %w", NewError(ErrUnresolvedIdentity))

	if got := ReasonOf(wrapped); got != "unresolved_identity" {
		t.Fatalf("expected unresolved_identity, got %q", got)
	}
	if !Is(wrapped, ErrUnresolvedIdentity) {
		t.Fatalf("expected Is to match wrapped code")
	}
	if got := ReasonOf(errors.New("plain")); got != "unknown" {
		t.Fatalf("expected unknown for plain error, got %q", got)
	}
}
