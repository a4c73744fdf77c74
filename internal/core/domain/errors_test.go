package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("model overloaded")
	err := WrapError(ErrTemporary, "gemini.generate.decision", cause)
	if !IsKind(err, ErrTemporary) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause to be preserved: %v", err)
	}
	if WrapError(ErrTemporary, "op", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestDetailErrorSurvivesWrapping(t *testing.T) {
	err := WithDetail(ErrUpstream, "Internal server error during PDF classification", errors.New("timeout"))
	wrapped := fmt.Errorf("classify documents: %w", err)

	if !IsKind(wrapped, ErrUpstream) {
		t.Fatalf("expected upstream kind: %v", wrapped)
	}
	if got := ClientDetail(wrapped); got != "Internal server error during PDF classification: timeout" {
		t.Fatalf("ClientDetail() = %q", got)
	}
	if got := ClientDetail(errors.New("plain")); got != "plain" {
		t.Fatalf("ClientDetail() = %q", got)
	}
}
