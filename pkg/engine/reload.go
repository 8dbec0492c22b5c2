package engine

import (
	"context"
	"log"
	"time"

	"github.com/deckerd451/innovation-engine-sub000/pkg/layout"
	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

// Notify feeds the realtime sync bridge. Change-notification sources may
// fire it at arbitrary frequency; debouncing is this engine's job, not the
// source's. Non-blocking: bursts collapse into a single pending reload.
func (e *Engine) Notify() {
	select {
	case e.notifyCh <- struct{}{}:
	default:
	}
}

// Refresh requests an explicit user-initiated reload. It bypasses the
// cooldown but still coalesces: at most one reload is ever in flight and a
// second request arriving mid-reload collapses into one follow-up.
func (e *Engine) Refresh() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// runSyncBridge is the single goroutine that serializes all reloads. One
// worker means "at most one in-flight reload" holds by construction; the
// buffered request channels give trailing requests exactly one slot.
func (e *Engine) runSyncBridge(ctx context.Context) {
	log.Println("engine: sync bridge started")
	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			log.Println("engine: sync bridge stopped")
			return

		case <-e.notifyCh:
			// Each event restarts the quiet window, so a burst of row
			// changes produces one reload once the stream goes silent.
			quiet = time.After(e.cfg.DebounceWindow)

		case <-e.refreshCh:
			quiet = nil
			if err := e.reload(ctx, "manual"); err != nil {
				log.Printf("engine: manual reload failed: %v", err)
			}

		case <-quiet:
			quiet = nil
			if wait := e.cooldownRemaining(); wait > 0 {
				// Too soon after the last successful reload; re-arm.
				quiet = time.After(wait)
				continue
			}
			if err := e.reload(ctx, "realtime"); err != nil {
				log.Printf("engine: realtime reload failed: %v", err)
			}
		}
	}
}

func (e *Engine) cooldownRemaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastReload.IsZero() {
		return 0
	}
	elapsed := time.Since(e.lastReload)
	if elapsed >= e.cfg.ReloadCooldown {
		return 0
	}
	return e.cfg.ReloadCooldown - elapsed
}

// reload pulls a fresh snapshot and rebuilds the simulation from it. The
// previous snapshot keeps rendering while the pull is in flight; the swap
// under lock is the only pause the render loop observes. Node identity is
// preserved across the rebuild so surviving nodes keep their positions.
func (e *Engine) reload(ctx context.Context, trigger string) error {
	recs, err := e.cfg.Source.FetchCommunity(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := model.BuildSnapshot(recs, e.cfg.CurrentUserID, e.mode)
	layout.Resolve(snap, e.width, e.height, e.mode)

	next, err := e.simulation.Rebuild(snap)
	if err != nil {
		return err
	}
	e.snap = snap
	e.simulation = next
	e.lastReload = time.Now()

	// Re-apply view state the rebuild would otherwise lose.
	e.applyFocusLocked()
	e.applyCategoryLocked()
	e.publishGaugesLocked()

	EngineReloadsTotal.WithLabelValues(trigger).Inc()
	log.Printf("engine: reload complete (trigger=%s, nodes=%d, edges=%d)", trigger, len(e.simulation.Nodes()), len(e.simulation.Edges()))
	return nil
}

func (e *Engine) publishGaugesLocked() {
	counts := map[model.NodeKind]int{}
	for _, n := range e.simulation.Nodes() {
		counts[n.Kind]++
	}
	for _, kind := range []model.NodeKind{model.NodePerson, model.NodeProject, model.NodeTheme, model.NodeOrganization} {
		EngineNodes.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}
	EngineEdges.Set(float64(len(e.simulation.Edges())))
}
