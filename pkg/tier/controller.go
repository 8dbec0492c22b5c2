// Package tier drives the constrained-device display-mode state machine. It
// maps continuous zoom plus user-intent signals into one of three discrete
// tiers, with a hysteresis band, a dwell-time requirement and a debounce
// interval so that zoom hovering near a boundary never causes flicker.
package tier

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Tier is one of the three discrete display modes.
type Tier int

const (
	// TierPersonalHub is the very-close-zoom mode: node count capped,
	// viewer's own node focused.
	TierPersonalHub Tier = 0
	// TierRelational is the default/neutral mode.
	TierRelational Tier = 1
	// TierEcosystem is the far-zoom discovery mode: show everything.
	TierEcosystem Tier = 2
)

// Actions receives the side effects of committed tier transitions. The
// controller guarantees each transition applies its effects exactly once;
// re-committing the current tier is a no-op.
type Actions interface {
	EnableQuiet()
	DisableQuiet()
	FocusSelf()
	ClearFocus()
	RequestFullCommunity()
}

// Sample is the input snapshot the host pushes before each evaluation.
type Sample struct {
	Zoom         float64
	PanelOpen    bool
	NodeSelected bool
	SearchActive bool
}

// Config holds the thresholds and timing knobs. Each tier's enter and exit
// thresholds deliberately differ; the gap is the hysteresis band.
type Config struct {
	Tier0Enter float64 // zoom at or above this proposes Personal Hub
	Tier0Exit  float64 // Personal Hub abandoned below this (< Tier0Enter)
	Tier2Enter float64 // zoom at or below this proposes Ecosystem
	Tier2Exit  float64 // Ecosystem abandoned above this (> Tier2Enter)

	ZoomEpsilon  float64       // zoom counts as stable within this delta
	DwellTime    time.Duration // zoom must be stable this long to commit
	MinInterval  time.Duration // minimum gap between committed transitions
	IdleAfter    time.Duration // last interaction older than this flips calm
	TickInterval time.Duration // evaluation loop period (~8/s)
}

func (c *Config) applyDefaults() {
	if c.Tier0Enter == 0 {
		c.Tier0Enter = 1.80
	}
	if c.Tier0Exit == 0 {
		c.Tier0Exit = 1.55
	}
	if c.Tier2Enter == 0 {
		c.Tier2Enter = 0.60
	}
	if c.Tier2Exit == 0 {
		c.Tier2Exit = 0.78
	}
	if c.ZoomEpsilon == 0 {
		c.ZoomEpsilon = 0.02
	}
	if c.DwellTime == 0 {
		c.DwellTime = 350 * time.Millisecond
	}
	if c.MinInterval == 0 {
		c.MinInterval = 1200 * time.Millisecond
	}
	if c.IdleAfter == 0 {
		c.IdleAfter = 30 * time.Second
	}
	if c.TickInterval == 0 {
		c.TickInterval = 125 * time.Millisecond
	}
}

// Controller owns the tier state. All mutation happens inside its own
// decision loop (or Evaluate, which the loop calls).
type Controller struct {
	cfg     Config
	actions Actions

	mu              sync.Mutex
	sample          Sample
	tier            Tier
	calm            bool
	lastChange      time.Time
	dwellStart      time.Time
	lastZoom        float64
	lastInteraction time.Time
	seeded          bool

	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// New validates wiring and returns a controller starting in the Relational
// tier. A nil Actions sink would reduce every transition to a confusing
// silent no-op, so it fails fast instead.
func New(cfg Config, actions Actions) (*Controller, error) {
	if actions == nil {
		return nil, errors.New("tier: Actions sink is required")
	}
	cfg.applyDefaults()
	return &Controller{
		cfg:             cfg,
		actions:         actions,
		tier:            TierRelational,
		lastInteraction: time.Now(),
	}, nil
}

// Start launches the throttled evaluation loop. The loop samples inputs at
// the configured tick interval rather than every rendered frame. A second
// Start is a no-op; one controller owns at most one loop.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.mu.Lock()
				s := c.sample
				c.mu.Unlock()
				c.Evaluate(s, now)
			}
		}
	}()
}

// Stop cancels the tick loop and waits for it to exit. Safe to call more
// than once; repeated init/destroy cycles must not leak goroutines.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})
}

// Observe publishes the latest input sample for the next evaluation tick.
func (c *Controller) Observe(s Sample) {
	c.mu.Lock()
	c.sample = s
	c.mu.Unlock()
}

// Touch timestamps a user interaction. The host forwards pointer, keyboard
// and wheel activity here; the controller keeps no listeners of its own.
func (c *Controller) Touch() {
	c.mu.Lock()
	c.lastInteraction = time.Now()
	c.calm = false
	c.mu.Unlock()
}

// Tier returns the current committed tier.
func (c *Controller) Tier() Tier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tier
}

// Calm reports whether idle-driven reduced animation is active.
func (c *Controller) Calm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calm
}

// Evaluate runs one decision step at the given time. Exported so tests can
// drive the state machine deterministically without the ticker.
func (c *Controller) Evaluate(s Sample, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Idling only flips the calm flag; it must never itself trigger a tier
	// transition in either direction.
	if now.Sub(c.lastInteraction) >= c.cfg.IdleAfter {
		c.calm = true
		return
	}
	c.calm = false

	// Search intent outranks zoom entirely.
	if s.SearchActive {
		c.commitLocked(TierEcosystem, now)
		return
	}

	proposed := c.proposeLocked(s.Zoom)

	// While the user is inspecting something, never force the Personal Hub.
	if (s.PanelOpen || s.NodeSelected) && proposed == TierPersonalHub {
		proposed = TierRelational
	}

	// Dwell: the zoom value must have been stable for DwellTime.
	if !c.seeded || absDiff(s.Zoom, c.lastZoom) > c.cfg.ZoomEpsilon {
		c.dwellStart = now
		c.lastZoom = s.Zoom
		c.seeded = true
	}
	if proposed == c.tier {
		return
	}
	if now.Sub(c.dwellStart) < c.cfg.DwellTime {
		return
	}
	// Debounce: rapid pinch gestures can satisfy dwell without satisfying
	// this, and vice versa, so both gates exist independently.
	if !c.lastChange.IsZero() && now.Sub(c.lastChange) < c.cfg.MinInterval {
		return
	}

	c.commitLocked(proposed, now)
}

// proposeLocked applies the hysteresis band: crossing a tier's enter
// threshold proposes it, but the same tier is only abandoned past its own
// exit threshold.
func (c *Controller) proposeLocked(zoom float64) Tier {
	switch c.tier {
	case TierPersonalHub:
		if zoom > c.cfg.Tier0Exit {
			return TierPersonalHub
		}
	case TierEcosystem:
		if zoom < c.cfg.Tier2Exit {
			return TierEcosystem
		}
	}
	if zoom >= c.cfg.Tier0Enter {
		return TierPersonalHub
	}
	if zoom <= c.cfg.Tier2Enter {
		return TierEcosystem
	}
	return TierRelational
}

// commitLocked applies a transition's side effects exactly once.
func (c *Controller) commitLocked(t Tier, now time.Time) {
	if t == c.tier {
		return
	}
	c.tier = t
	c.lastChange = now

	switch t {
	case TierPersonalHub:
		c.actions.EnableQuiet()
		c.actions.FocusSelf()
	case TierRelational:
		c.actions.DisableQuiet()
		c.actions.ClearFocus()
	case TierEcosystem:
		c.actions.DisableQuiet()
		c.actions.ClearFocus()
		c.actions.RequestFullCommunity()
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
