package throttle_test

import (
	"testing"
	"time"

	"github.com/civicatlas/boundary-api/internal/throttle"
)

// TestGate_RejectsAfterLimit verifies the (N+1)th request inside one
// window from the same identity is rejected.
func TestGate_RejectsAfterLimit(t *testing.T) {
	gate := throttle.NewGate(5, time.Hour)

	for i := 0; i < 5; i++ {
		if !gate.Admit("1.2.3.4") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if gate.Admit("1.2.3.4") {
		t.Error("request 6 should be rejected")
	}
}

// TestGate_IdentityIsolation verifies one identity exhausting its budget
// does not affect another identity in the same window.
func TestGate_IdentityIsolation(t *testing.T) {
	gate := throttle.NewGate(2, time.Hour)

	gate.Admit("1.2.3.4")
	gate.Admit("1.2.3.4")
	if gate.Admit("1.2.3.4") {
		t.Error("first identity should be exhausted")
	}
	if !gate.Admit("5.6.7.8") {
		t.Error("second identity should be unaffected")
	}
}

// TestGate_ConcurrentAdmits verifies concurrent admits on one identity
// never under-admit below the configured budget.
func TestGate_ConcurrentAdmits(t *testing.T) {
	const limit = 100
	gate := throttle.NewGate(limit, time.Hour)

	results := make(chan bool, limit)
	for i := 0; i < limit; i++ {
		go func() { results <- gate.Admit("concurrent") }()
	}

	admitted := 0
	for i := 0; i < limit; i++ {
		if <-results {
			admitted++
		}
	}
	if admitted < limit {
		t.Errorf("admitted %d of %d within budget", admitted, limit)
	}
}

// TestGate_RetryAfter verifies the suggested wait is one refill interval.
func TestGate_RetryAfter(t *testing.T) {
	gate := throttle.NewGate(100, time.Hour)
	if got := gate.RetryAfter(); got != time.Hour/100 {
		t.Errorf("RetryAfter = %v", got)
	}
}
