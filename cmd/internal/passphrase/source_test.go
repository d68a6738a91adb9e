package passphrase

import (
	"errors"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("PAYLOCK_TEST_PASS", "hunter2")
	src := NewSource("PAYLOCK_TEST_PASS", "wallet")
	src.isTerminal = func() bool {
		t.Fatal("terminal must not be consulted when the env var is set")
		return false
	}
	got, err := src.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("PAYLOCK_TEST_PASS", " ")
	if _, err := NewSource("PAYLOCK_TEST_PASS", "wallet").Get(); err == nil {
		t.Fatal("expected empty passphrase to be rejected")
	}
	got, err := NewSource("PAYLOCK_TEST_PASS", "wallet").AllowEmpty().Get()
	if err != nil || got != " " {
		t.Fatalf("expected empty passphrase to be accepted, got %q, %v", got, err)
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("", "wallet")
	src.isTerminal = func() bool { return false }
	if _, err := src.Get(); err == nil {
		t.Fatal("expected error without terminal")
	}

	lenient := NewSource("", "wallet").AllowEmpty()
	lenient.isTerminal = func() bool { return false }
	got, err := lenient.Get()
	if err != nil || got != "" {
		t.Fatalf("expected empty passphrase, got %q, %v", got, err)
	}
}

func TestSourcePromptsOnce(t *testing.T) {
	calls := 0
	src := NewSource("", "wallet")
	src.isTerminal = func() bool { return true }
	src.readSecret = func() ([]byte, error) {
		calls++
		return []byte("secret"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := src.Get()
		if err != nil || got != "secret" {
			t.Fatalf("unexpected result %q, %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}

	failing := NewSource("", "wallet")
	failing.isTerminal = func() bool { return true }
	failing.readSecret = func() ([]byte, error) { return nil, errors.New("tty closed") }
	if _, err := failing.Get(); err == nil {
		t.Fatal("expected read failure to surface")
	}
}
