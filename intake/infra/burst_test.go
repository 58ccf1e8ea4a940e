package infra

import (
	"testing"
	"time"

	"refund-intake/intake/domain"
)

func TestBurstGuard_LowBurstRejectsSecondImmediateAllow(t *testing.T) {
	g := NewBurstGuard(0.02, 1)

	if ok, _ := g.Allow(domain.Key("k")); !ok {
		t.Fatalf("expected first Allow to be true")
	}
	ok, wait := g.Allow(domain.Key("k"))
	if ok {
		t.Fatalf("expected second immediate Allow to be false (burst=1)")
	}
	if wait <= 0 {
		t.Fatalf("expected a positive wait, got %s", wait)
	}
}

func TestBurstGuard_KeysAreIndependent(t *testing.T) {
	g := NewBurstGuard(0.02, 1)

	if ok, _ := g.Allow("a"); !ok {
		t.Fatalf("expected a to be allowed")
	}
	if ok, _ := g.Allow("b"); !ok {
		t.Fatalf("expected b to be allowed")
	}
}

func TestBurstGuard_CleanupRemovesIdleBuckets(t *testing.T) {
	g := NewBurstGuard(10, 1, WithIdleTTL(2*time.Millisecond), WithBurstCleanupEvery(0))

	g.Allow("k")
	time.Sleep(4 * time.Millisecond)

	g.Cleanup()

	if g.Len() != 0 {
		t.Fatalf("expected bucket to be removed after cleanup, got %d", g.Len())
	}
}

func TestBurstGuard_ReportsSettings(t *testing.T) {
	g := NewBurstGuard(2.5, 7)

	if g.RPS() != 2.5 || g.Burst() != 7 {
		t.Fatalf("unexpected settings: rps=%v burst=%d", g.RPS(), g.Burst())
	}
}
