package cli

import (
	"bytes"
	"testing"

	"github.com/google/subcommands"
)

func TestRunSourceSuccess(t *testing.T) {
	var out bytes.Buffer
	status, err := RunSource(`print('hi');`, &out)
	if err != nil {
		t.Fatalf("RunSource: %v", err)
	}
	if status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, want ExitSuccess", status)
	}
	if out.String() != "hi" {
		t.Fatalf("output = %q, want %q", out.String(), "hi")
	}
}

func TestRunSourceTranslationError(t *testing.T) {
	status, err := RunSource(`print(1 + 'a');`, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected a translation error")
	}
	if status != ExitTranslationError {
		t.Fatalf("status = %v, want ExitTranslationError", status)
	}
}

func TestRunSourceRuntimeError(t *testing.T) {
	status, err := RunSource(`int x; x = 1 / 0;`, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected a runtime error")
	}
	if status != ExitRuntimeError {
		t.Fatalf("status = %v, want ExitRuntimeError", status)
	}
}
