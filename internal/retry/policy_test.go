package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	tests := []struct {
		name  string
		p     Policy
		retry int
		want  time.Duration
	}{
		{name: "no retry", p: NewPolicy(BackoffLinear, time.Millisecond, 10*time.Millisecond, 5), retry: 0, want: 0},
		{name: "linear", p: NewPolicy(BackoffLinear, time.Millisecond, 10*time.Millisecond, 5), retry: 3, want: 3 * time.Millisecond},
		{name: "linear capped", p: NewPolicy(BackoffLinear, 4*time.Millisecond, 10*time.Millisecond, 5), retry: 4, want: 10 * time.Millisecond},
		{name: "fixed", p: NewPolicy(BackoffFixed, 2*time.Millisecond, 10*time.Millisecond, 5), retry: 4, want: 2 * time.Millisecond},
		{name: "exponential", p: NewPolicy(BackoffExponential, time.Millisecond, 100*time.Millisecond, 5), retry: 4, want: 8 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Delay(tt.retry); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
			}
		})
	}
}

func TestNewPolicyDefaults(t *testing.T) {
	p := NewPolicy("bogus", 0, 0, 0)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Mode != BackoffLinear || p.MaxAttempts != 3 {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestDo(t *testing.T) {
	errTransient := errors.New("transient")
	errFatal := errors.New("fatal")
	retryable := func(err error) bool { return errors.Is(err, errTransient) }
	p := NewPolicy(BackoffFixed, time.Microsecond, time.Microsecond, 4)

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), retryable, func(int) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("Do() = %v after %d calls, want nil after 3", err, calls)
		}
	})

	t.Run("stops on non-retryable", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), retryable, func(int) error {
			calls++
			return errFatal
		})
		if !errors.Is(err, errFatal) || calls != 1 {
			t.Errorf("Do() = %v after %d calls", err, calls)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		err := p.Do(context.Background(), retryable, func(int) error {
			calls++
			return errTransient
		})
		if !errors.Is(err, errTransient) || calls != 4 {
			t.Errorf("Do() = %v after %d calls, want transient after 4", err, calls)
		}
	})
}

func TestDoRejectsInvalidPolicy(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(error) bool { return true }, func(int) error {
		calls++
		return nil
	})
	if err == nil || calls != 0 {
		t.Errorf("Do() on zero policy = %v after %d calls, want error before any call", err, calls)
	}
}
