package http

import "testing"

func TestRateLimiterBurst(t *testing.T) {
	rl := newRateLimiter(3)
	for i := range 3 {
		if !rl.allow() {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if rl.allow() {
		t.Fatalf("fourth message within the burst window should be rejected")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0)
	for range 1000 {
		if !rl.allow() {
			t.Fatalf("disabled limiter must allow everything")
		}
	}
}
