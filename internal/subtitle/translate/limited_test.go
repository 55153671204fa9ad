package translate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimitedRetriesTemporaryFailures(t *testing.T) {
	attempts := 0
	ft := &fakeTranslator{fn: func(string) (string, error) {
		attempts++
		if attempts < 3 {
			return "", failure("fake", 503, errors.New("busy"))
		}
		return "done", nil
	}}

	var delays []time.Duration
	l := NewLimited(ft, nil, 3)
	l.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	out, err := l.Translate(context.Background(), "hi", "key")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if out != "done" || attempts != 3 {
		t.Errorf("out = %q after %d attempts", out, attempts)
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v", delays)
	}
}

func TestLimitedDoesNotRetryPermanentFailures(t *testing.T) {
	attempts := 0
	ft := &fakeTranslator{fn: func(string) (string, error) {
		attempts++
		return "", failure("fake", 401, errors.New("bad key"))
	}}
	l := NewLimited(ft, nil, 5)
	l.sleep = func(context.Context, time.Duration) error { return nil }

	_, err := l.Translate(context.Background(), "hi", "key")
	var te *TranslationError
	if !errors.As(err, &te) || te.StatusCode != 401 {
		t.Fatalf("err = %v, want 401 TranslationError", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestLimitedGivesUpAfterAttempts(t *testing.T) {
	attempts := 0
	ft := &fakeTranslator{fn: func(string) (string, error) {
		attempts++
		return "", failure("fake", 429, errors.New("slow down"))
	}}
	l := NewLimited(ft, nil, 2).WithBackoff(time.Millisecond, time.Millisecond)

	if _, err := l.Translate(context.Background(), "hi", "key"); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestLimitedHonoursCancelledContext(t *testing.T) {
	ft := &fakeTranslator{fn: upper}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLimited(ft, NewRateLimiter(1), 1).Translate(ctx, "hi", "key")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(ft.calls) != 0 {
		t.Errorf("translator called %d times", len(ft.calls))
	}
}

func TestTranslationErrorTemporary(t *testing.T) {
	tests := []struct {
		err  *TranslationError
		want bool
	}{
		{failure("x", 429, errors.New("")), true},
		{failure("x", 503, errors.New("")), true},
		{failure("x", 400, errors.New("")), false},
		{failure("x", 0, context.DeadlineExceeded), true},
		{failure("x", 0, context.Canceled), false},
		{failure("x", 0, errors.New("read: connection reset by peer")), true},
		{failure("x", 0, ErrEmptyTranslation), false},
	}
	for _, tt := range tests {
		if got := tt.err.Temporary(); got != tt.want {
			t.Errorf("%v: Temporary() = %v, want %v", tt.err, got, tt.want)
		}
	}
}
