package apperr

import (
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	t.Parallel()
	err := NotFound("contact")
	if !IsNotFound(err) {
		t.Fatal("IsNotFound = false")
	}
	if IsInvalid(err) {
		t.Fatal("IsInvalid = true for not-found error")
	}
	if got := err.Error(); got != "contact: not found" {
		t.Errorf("message = %q", got)
	}
	if !IsNotFound(fmt.Errorf("load: %w", err)) {
		t.Error("wrapped not-found lost its kind")
	}
}

func TestInvalid(t *testing.T) {
	t.Parallel()
	err := Invalid("unknown status %q", "archived")
	if !IsInvalid(err) {
		t.Fatal("IsInvalid = false")
	}
	if IsNotFound(err) {
		t.Fatal("IsNotFound = true for invalid error")
	}
	if got := err.Error(); got != `unknown status "archived": invalid input` {
		t.Errorf("message = %q", got)
	}
}
