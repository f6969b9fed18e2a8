package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryAttempts(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		failUntil  int // attempt number that first succeeds; 0 = never
		wantCalls  int
		wantErr    bool
	}{
		{"first try", 3, 1, 1, false},
		{"third try", 3, 3, 3, false},
		{"exhausted", 2, 0, 3, true},
		{"no retries", 0, 0, 1, true},
		{"negative runs once and fails", -1, 0, 1, true},
		{"negative runs once and succeeds", -5, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), tt.maxRetries, time.Millisecond, func(ctx context.Context) error {
				calls++
				if tt.failUntil != 0 && calls >= tt.failUntil {
					return nil
				}
				return errors.New("attempt failed")
			})
			if calls != tt.wantCalls {
				t.Fatalf("calls: got %d want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v want error=%v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	last := errors.New("third")
	err := Retry(context.Background(), 2, 0, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return last
		}
		return errors.New("earlier")
	})
	if !errors.Is(err, last) {
		t.Fatalf("got %v want last error", err)
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, 10, time.Hour, func(ctx context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Fatalf("calls: got %d want 1", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry did not return after cancel")
	}
}

func TestRetryValue(t *testing.T) {
	calls := 0
	v, err := RetryValue(context.Background(), 3, 0, func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("not yet")
		}
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v", v, err)
	}
}
