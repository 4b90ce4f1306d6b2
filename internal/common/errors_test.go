package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsFollowsWrappedChain(t *testing.T) {
	base := NewError(CodeNotFound, "application not found", errors.New("no rows"))
	wrapped := fmt.Errorf("load: %w", base)
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("expected wrapped error to carry not_found")
	}
	if Is(wrapped, CodeInternal) {
		t.Fatalf("unexpected internal code match")
	}
	if CodeOf(errors.New("plain")) != CodeInternal {
		t.Fatalf("expected untyped errors to map to internal")
	}
}

func TestMessageOfHidesUntypedDetail(t *testing.T) {
	if got := MessageOf(errors.New("pq: connection refused")); got != "internal error" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := MessageOf(NewError(CodeValidation, "invalid id", nil)); got != "invalid id" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestParseUUID(t *testing.T) {
	id := NewUUID()
	parsed, err := ParseUUID(" " + id.String() + " ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}
	if _, err := ParseUUID("not-an-id"); err == nil {
		t.Fatalf("expected parse error")
	}
}
