package tier

import (
	"context"
	"runtime"
	"testing"
	"time"
)

// recorder counts side-effect invocations.
type recorder struct {
	enableQuiet, disableQuiet, focusSelf, clearFocus, fullCommunity int
}

func (r *recorder) EnableQuiet()          { r.enableQuiet++ }
func (r *recorder) DisableQuiet()         { r.disableQuiet++ }
func (r *recorder) FocusSelf()            { r.focusSelf++ }
func (r *recorder) ClearFocus()           { r.clearFocus++ }
func (r *recorder) RequestFullCommunity() { r.fullCommunity++ }

func newTestController(t *testing.T) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := New(Config{
		DwellTime:   300 * time.Millisecond,
		MinInterval: 1 * time.Second,
		IdleAfter:   30 * time.Second,
	}, rec)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, rec
}

func TestNew_RequiresActions(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected misconfiguration error for nil Actions")
	}
}

func TestEvaluate_CommitsAfterDwellAndDebounce(t *testing.T) {
	c, rec := newTestController(t)
	base := time.Now()

	// Zoom deep into Personal Hub territory and hold it.
	s := Sample{Zoom: 2.0}
	c.Evaluate(s, base)
	if c.Tier() != TierRelational {
		t.Fatal("tier changed before dwell elapsed")
	}
	c.Evaluate(s, base.Add(400*time.Millisecond))
	if c.Tier() != TierPersonalHub {
		t.Fatalf("expected Personal Hub after dwell, got %v", c.Tier())
	}
	if rec.enableQuiet != 1 || rec.focusSelf != 1 {
		t.Errorf("tier 0 side effects not applied exactly once: %+v", rec)
	}
}

func TestEvaluate_HysteresisNoFlickerAroundThreshold(t *testing.T) {
	c, rec := newTestController(t)
	base := time.Now()

	// Oscillate narrowly around the tier-0 enter threshold faster than the
	// dwell time. The tier must not change at all.
	zooms := []float64{1.79, 1.82, 1.78, 1.83, 1.79, 1.81}
	for i, z := range zooms {
		c.Evaluate(Sample{Zoom: z}, base.Add(time.Duration(i)*50*time.Millisecond))
	}
	if c.Tier() != TierRelational {
		t.Errorf("tier flickered to %v under oscillating zoom", c.Tier())
	}
	if rec.enableQuiet != 0 {
		t.Error("side effects fired during oscillation")
	}
}

func TestEvaluate_ExitThresholdDiffersFromEnter(t *testing.T) {
	c, _ := newTestController(t)
	base := time.Now()

	// Enter Personal Hub.
	c.Evaluate(Sample{Zoom: 2.0}, base)
	c.Evaluate(Sample{Zoom: 2.0}, base.Add(400*time.Millisecond))
	if c.Tier() != TierPersonalHub {
		t.Fatal("setup: did not enter Personal Hub")
	}

	// Dip just below the enter threshold but above the exit threshold: the
	// hysteresis band holds the tier.
	hold := Sample{Zoom: 1.70}
	c.Evaluate(hold, base.Add(2*time.Second))
	c.Evaluate(hold, base.Add(3*time.Second))
	if c.Tier() != TierPersonalHub {
		t.Error("tier abandoned inside hysteresis band")
	}

	// Below the exit threshold it is abandoned.
	leave := Sample{Zoom: 1.40}
	c.Evaluate(leave, base.Add(4*time.Second))
	c.Evaluate(leave, base.Add(5*time.Second))
	if c.Tier() != TierRelational {
		t.Errorf("expected Relational below exit threshold, got %v", c.Tier())
	}
}

func TestEvaluate_DebounceCollapsesRapidChanges(t *testing.T) {
	c, rec := newTestController(t)
	base := time.Now()

	// First qualifying change commits.
	c.Evaluate(Sample{Zoom: 2.0}, base)
	c.Evaluate(Sample{Zoom: 2.0}, base.Add(400*time.Millisecond))
	if c.Tier() != TierPersonalHub {
		t.Fatal("setup: first commit missing")
	}

	// Second qualifying change arrives within the minimum interval: held.
	c.Evaluate(Sample{Zoom: 0.4}, base.Add(500*time.Millisecond))
	c.Evaluate(Sample{Zoom: 0.4}, base.Add(900*time.Millisecond))
	if c.Tier() != TierPersonalHub {
		t.Errorf("second transition committed inside debounce interval, tier=%v", c.Tier())
	}
	if rec.fullCommunity != 0 {
		t.Error("ecosystem side effects fired inside debounce interval")
	}

	// After the interval elapses it commits.
	c.Evaluate(Sample{Zoom: 0.4}, base.Add(1600*time.Millisecond))
	if c.Tier() != TierEcosystem {
		t.Errorf("expected Ecosystem after debounce elapsed, got %v", c.Tier())
	}
	if rec.fullCommunity != 1 {
		t.Errorf("expected exactly one full-community request, got %d", rec.fullCommunity)
	}
}

func TestEvaluate_SearchForcesEcosystem(t *testing.T) {
	c, rec := newTestController(t)
	// Search overrides zoom entirely, no dwell required.
	c.Evaluate(Sample{Zoom: 2.0, SearchActive: true}, time.Now())
	if c.Tier() != TierEcosystem {
		t.Errorf("search did not force Ecosystem, tier=%v", c.Tier())
	}
	if rec.fullCommunity != 1 {
		t.Error("full-community request not issued for search override")
	}
}

func TestEvaluate_InspectionCapsAtRelational(t *testing.T) {
	c, rec := newTestController(t)
	base := time.Now()

	s := Sample{Zoom: 2.0, PanelOpen: true}
	c.Evaluate(s, base)
	c.Evaluate(s, base.Add(400*time.Millisecond))
	c.Evaluate(s, base.Add(2*time.Second))
	if c.Tier() != TierRelational {
		t.Errorf("Personal Hub forced while panel open, tier=%v", c.Tier())
	}
	if rec.enableQuiet != 0 {
		t.Error("quiet mode enabled while inspecting")
	}

	// Same with a selected node.
	c2, _ := newTestController(t)
	s2 := Sample{Zoom: 2.0, NodeSelected: true}
	c2.Evaluate(s2, base)
	c2.Evaluate(s2, base.Add(2*time.Second))
	if c2.Tier() != TierRelational {
		t.Error("Personal Hub forced while node selected")
	}
}

func TestEvaluate_RecommitSameTierIsNoOp(t *testing.T) {
	c, rec := newTestController(t)
	base := time.Now()

	c.Evaluate(Sample{Zoom: 2.0}, base)
	c.Evaluate(Sample{Zoom: 2.0}, base.Add(400*time.Millisecond))
	if rec.enableQuiet != 1 {
		t.Fatal("setup: first commit missing")
	}

	// Holding the same conditions must not re-apply side effects.
	for i := 0; i < 20; i++ {
		c.Evaluate(Sample{Zoom: 2.0}, base.Add(time.Duration(2+i)*time.Second))
	}
	if rec.enableQuiet != 1 || rec.focusSelf != 1 {
		t.Errorf("duplicate side effects on same-tier re-commit: %+v", rec)
	}
}

func TestEvaluate_IdleOnlyFlipsCalmFlag(t *testing.T) {
	rec := &recorder{}
	c, err := New(Config{IdleAfter: 100 * time.Millisecond, DwellTime: 50 * time.Millisecond, MinInterval: 50 * time.Millisecond}, rec)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Simulate no interaction for longer than the idle threshold, with a
	// zoom that would otherwise qualify for a transition.
	future := time.Now().Add(time.Second)
	c.Evaluate(Sample{Zoom: 2.0}, future)
	c.Evaluate(Sample{Zoom: 2.0}, future.Add(time.Second))

	if !c.Calm() {
		t.Error("calm flag not set while idle")
	}
	if c.Tier() != TierRelational {
		t.Errorf("idle triggered a tier transition to %v", c.Tier())
	}
	if rec.enableQuiet != 0 {
		t.Error("side effects fired while idle")
	}

	// Interaction clears calm and re-enables transitions.
	c.Touch()
	now := time.Now()
	c.Evaluate(Sample{Zoom: 2.0}, now)
	c.Evaluate(Sample{Zoom: 2.0}, now.Add(60*time.Millisecond))
	if c.Calm() {
		t.Error("calm flag not cleared after interaction")
	}
	if c.Tier() != TierPersonalHub {
		t.Errorf("transition blocked after interaction, tier=%v", c.Tier())
	}
}

func TestController_SecondStartIsNoOp(t *testing.T) {
	c, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	c.Start(ctx)
	c.Start(ctx) // must not spawn a second loop
	time.Sleep(50 * time.Millisecond)
	c.Stop()

	// The single loop winds down after Stop; a leaked first loop would keep
	// the count elevated indefinitely.
	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runtime.NumGoroutine(); got > before {
		t.Errorf("goroutines leaked across double Start: before=%d after=%d", before, got)
	}
}

func TestController_StartStopDoesNotLeak(t *testing.T) {
	c, _ := newTestController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	c.Observe(Sample{Zoom: 1.0})
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Stop()
		c.Stop() // second Stop must be safe
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}
