// Package engine ties the graph data model, layout resolver, force
// simulation and focus system together behind one explicit instance with an
// Init/Destroy lifecycle. Nothing here lives in ambient global state; the
// host constructs an Engine, drives it once per rendered frame, and tears it
// down when the view goes away.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/deckerd451/innovation-engine-sub000/pkg/focus"
	"github.com/deckerd451/innovation-engine-sub000/pkg/layout"
	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
	"github.com/deckerd451/innovation-engine-sub000/pkg/sim"
)

// ErrSurfaceUnavailable is returned when the render surface never reported a
// usable size within the configured wait. Recoverable: the host may call
// SetSurface once layout settles and Init again.
var ErrSurfaceUnavailable = errors.New("engine: render surface unavailable")

// DataSource supplies community records on demand. Reloads are the only
// network-bound, awaitable operations in the engine.
type DataSource interface {
	FetchCommunity(ctx context.Context) (*model.CommunityRecords, error)
}

// Notifier invokes the callback whenever relevant underlying records change.
// No payload contract; it may fire at arbitrary frequency.
type Notifier interface {
	Subscribe(ctx context.Context, fn func()) error
}

// PanelOpener renders out-of-engine detail UI for a node. The engine only
// calls it, never awaits a result.
type PanelOpener interface {
	OpenPanel(id string, kind model.NodeKind, displayName string)
}

// Config wires an Engine. Source and CurrentUserID are mandatory; running
// partially wired would produce confusing silent no-ops, so New fails fast.
type Config struct {
	Source        DataSource
	Notifier      Notifier    // optional
	Panel         PanelOpener // optional
	CurrentUserID string
	Mode          model.DisplayMode

	Sim sim.Config

	SurfaceTimeout time.Duration // wait for a usable surface before giving up
	DebounceWindow time.Duration // quiet window for realtime notifications
	ReloadCooldown time.Duration // minimum gap between realtime reloads

	// Notice receives non-blocking informational messages (e.g. a focus
	// target that is not in the current view). Defaults to log output.
	Notice func(msg string)
}

// FocusOptions tweaks a focus operation.
type FocusOptions struct {
	Zoom float64 // camera scale, defaults to the standard focus zoom
}

// Stats is the read-only snapshot summary exposed to collaborators.
type Stats struct {
	NodeCounts                 map[model.NodeKind]int
	EdgeCount                  int
	CurrentUserConnectionCount int
}

type opKind int

const (
	opFocusNode opKind = iota
	opFocusTheme
	opShowActivity
)

// pendingOp holds at most one queued API request made before the engine
// finished its first build. Last write wins.
type pendingOp struct {
	kind opKind
	id   string
	opts *FocusOptions
}

// Engine is one live instance of the graph visualization engine.
type Engine struct {
	cfg Config

	mu         sync.Mutex
	mode       model.DisplayMode
	width      float64
	height     float64
	snap       *model.Snapshot
	simulation *sim.Simulation
	camera     *focus.Camera
	focalID    string
	focalZoom  float64
	category   string
	quiet      bool
	ready      bool
	pending    *pendingOp
	lastReload time.Time

	surfaceOnce  sync.Once
	surfaceReady chan struct{}

	notifyCh  chan struct{}
	refreshCh chan struct{}

	cancel      context.CancelFunc
	destroyOnce sync.Once
}

// New validates the wiring and returns an engine that has not yet built its
// first snapshot.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, errors.New("engine: DataSource is required")
	}
	if cfg.CurrentUserID == "" {
		return nil, errors.New("engine: CurrentUserID is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = model.ModeFocused
	}
	if cfg.SurfaceTimeout == 0 {
		cfg.SurfaceTimeout = 5 * time.Second
	}
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = 800 * time.Millisecond
	}
	if cfg.ReloadCooldown == 0 {
		cfg.ReloadCooldown = 10 * time.Second
	}
	if cfg.Notice == nil {
		cfg.Notice = func(msg string) { log.Printf("engine: notice: %s", msg) }
	}
	return &Engine{
		cfg:          cfg,
		mode:         cfg.Mode,
		surfaceReady: make(chan struct{}),
		notifyCh:     make(chan struct{}, 1),
		refreshCh:    make(chan struct{}, 1),
	}, nil
}

// SetSurface reports the usable render area. The first non-zero size
// releases an Init call waiting on layout.
func (e *Engine) SetSurface(width, height float64) {
	e.mu.Lock()
	e.width, e.height = width, height
	e.mu.Unlock()
	if width > 0 && height > 0 {
		e.surfaceOnce.Do(func() { close(e.surfaceReady) })
	}
}

// Init pulls the first snapshot, waits (bounded) for a usable surface,
// builds the simulation, replays any queued API request and starts the
// realtime sync bridge. ctx must outlive the engine; Destroy stops all
// background work.
func (e *Engine) Init(ctx context.Context) error {
	recs, err := e.cfg.Source.FetchCommunity(ctx)
	if err != nil {
		return fmt.Errorf("initial community fetch failed: %w", err)
	}

	e.mu.Lock()
	w, h := e.width, e.height
	e.mu.Unlock()
	if w <= 0 || h <= 0 {
		select {
		case <-e.surfaceReady:
			e.mu.Lock()
			w, h = e.width, e.height
			e.mu.Unlock()
		case <-time.After(e.cfg.SurfaceTimeout):
			return ErrSurfaceUnavailable
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.mu.Lock()
	snap := model.BuildSnapshot(recs, e.cfg.CurrentUserID, e.mode)
	layout.Resolve(snap, w, h, e.mode)
	s, err := sim.New(snap, e.cfg.Sim, w, h)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.snap = snap
	e.simulation = s
	e.camera = focus.NewCamera(w/2, h/2)
	e.lastReload = time.Now()
	e.ready = true
	queued := e.pending
	e.pending = nil
	e.publishGaugesLocked()
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.runSyncBridge(runCtx)
	if e.cfg.Notifier != nil {
		go func() {
			if err := e.cfg.Notifier.Subscribe(runCtx, e.Notify); err != nil && runCtx.Err() == nil {
				log.Printf("engine: change notifier stopped: %v", err)
			}
		}()
	}

	if queued != nil {
		e.replay(queued)
	}
	return nil
}

// Destroy stops all background work. Safe to call more than once.
func (e *Engine) Destroy() {
	e.destroyOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		e.mu.Lock()
		e.ready = false
		e.mu.Unlock()
	})
}

// Ready reports whether the first build completed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *Engine) replay(op *pendingOp) {
	switch op.kind {
	case opFocusNode:
		e.FocusNode(op.id, op.opts)
	case opFocusTheme:
		e.FocusTheme(op.id)
	case opShowActivity:
		e.ShowActivity()
	}
}

// FocusNode centers and dims around the node. Before the first build the
// request is queued (at most one, last write wins) and replayed once ready.
// An unknown id falls back to the viewer's own node with a notice rather
// than failing.
func (e *Engine) FocusNode(id string, opts *FocusOptions) {
	e.mu.Lock()
	if !e.ready {
		e.pending = &pendingOp{kind: opFocusNode, id: id, opts: opts}
		e.mu.Unlock()
		return
	}
	n := e.simulation.Lookup(id)
	if n == nil {
		e.mu.Unlock()
		e.cfg.Notice(fmt.Sprintf("%q is not in the current view", id))
		e.mu.Lock()
		n = e.simulation.Lookup(e.cfg.CurrentUserID)
		if n == nil {
			e.mu.Unlock()
			return
		}
	}
	e.focalID = n.ID
	e.focalZoom = focus.FocusZoom
	if opts != nil && opts.Zoom > 0 {
		e.focalZoom = opts.Zoom
	}
	e.applyFocusLocked()
	e.mu.Unlock()
	EngineFocusChangesTotal.Inc()
}

// FocusTheme focuses a theme node, accepting either id form.
func (e *Engine) FocusTheme(id string) {
	e.mu.Lock()
	if !e.ready {
		e.pending = &pendingOp{kind: opFocusTheme, id: id}
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.FocusNode(model.CanonicalThemeID(id), nil)
}

// ShowActivity clears any focus and zooms out to show the whole graph.
func (e *Engine) ShowActivity() {
	e.mu.Lock()
	if !e.ready {
		e.pending = &pendingOp{kind: opShowActivity}
		e.mu.Unlock()
		return
	}
	e.focalID = ""
	e.applyFocusLocked()
	e.camera.Retarget(e.width/2, e.height/2, 0.8)
	e.mu.Unlock()
	EngineFocusChangesTotal.Inc()
}

// ClearFocus restores full opacity everywhere and recenters the camera.
func (e *Engine) ClearFocus() {
	e.mu.Lock()
	if e.ready {
		e.focalID = ""
		e.applyFocusLocked()
	}
	e.mu.Unlock()
	EngineFocusChangesTotal.Inc()
}

// applyFocusLocked re-derives all node and edge opacities from the focal
// state. Pure in the focal id and current positions, so it is safe to run on
// every focus change and after every reload.
func (e *Engine) applyFocusLocked() {
	if e.simulation == nil {
		return
	}
	if e.focalID == "" {
		focus.Clear(e.simulation.Nodes(), e.simulation.Edges())
		e.camera.Reset(e.width/2, e.height/2)
		return
	}
	n := e.simulation.Lookup(e.focalID)
	if n == nil {
		// Focal node vanished on reload; fall back to a clear view.
		e.focalID = ""
		focus.Clear(e.simulation.Nodes(), e.simulation.Edges())
		e.camera.Reset(e.width/2, e.height/2)
		return
	}
	focus.Apply(e.simulation.Nodes(), e.simulation.Edges(), n)
	e.camera.Retarget(n.X, n.Y, e.focalZoom)
}

// FilterByCategory dims everything that does not match the category (a node
// kind or a tag) without rebuilding the simulation. Empty category restores
// the focus-appropriate opacities.
func (e *Engine) FilterByCategory(category string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return
	}
	e.category = category
	e.applyFocusLocked()
	e.applyCategoryLocked()
}

func (e *Engine) applyCategoryLocked() {
	if e.category == "" || e.simulation == nil {
		return
	}
	matches := func(n *model.Node) bool {
		if string(n.Kind) == e.category {
			return true
		}
		_, ok := n.Tags[e.category]
		return ok
	}
	byID := make(map[string]*model.Node)
	for _, n := range e.simulation.Nodes() {
		byID[n.ID] = n
		if matches(n) {
			n.Opacity = 1.0
		} else {
			n.Opacity = focus.FarOpacity
		}
	}
	for _, edge := range e.simulation.Edges() {
		src, tgt := byID[edge.SourceID], byID[edge.TargetID]
		if src == nil || tgt == nil {
			continue
		}
		edge.Opacity = (src.Opacity + tgt.Opacity) / 2
	}
}

// SetQuiet toggles the node-count-capping quiet rendering mode. Idempotent.
func (e *Engine) SetQuiet(on bool) {
	e.mu.Lock()
	e.quiet = on
	e.mu.Unlock()
}

// Quiet reports whether quiet rendering is active.
func (e *Engine) Quiet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.quiet
}

// SetDisplayMode switches between focused and full-community data and
// triggers an immediate reload. A no-op when the mode is unchanged.
func (e *Engine) SetDisplayMode(mode model.DisplayMode) {
	e.mu.Lock()
	if e.mode == mode {
		e.mu.Unlock()
		return
	}
	e.mode = mode
	e.mu.Unlock()
	e.Refresh()
}

// DisplayMode returns the active display mode.
func (e *Engine) DisplayMode() model.DisplayMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Tick advances the simulation (if it still has energy) and the camera
// transition by one frame. Cheap enough to call every rendered frame.
func (e *Engine) Tick(dt time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return
	}
	if e.simulation.Tick() {
		EngineSimTicksTotal.Inc()
	}
	e.camera.Step(dt)
}

// OpenNode asks the host's detail panel to show a node and marks it focal.
func (e *Engine) OpenNode(id string) {
	e.FocusNode(id, nil)
	e.mu.Lock()
	n := (*model.Node)(nil)
	if e.ready {
		n = e.simulation.Lookup(e.focalID)
	}
	panel := e.cfg.Panel
	e.mu.Unlock()
	if n != nil && panel != nil {
		panel.OpenPanel(n.ID, n.Kind, n.DisplayName)
	}
}

// GetStats returns the read-only snapshot summary.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := Stats{NodeCounts: make(map[model.NodeKind]int)}
	if !e.ready {
		return stats
	}
	for _, n := range e.simulation.Nodes() {
		stats.NodeCounts[n.Kind]++
	}
	stats.EdgeCount = len(e.simulation.Edges())
	stats.CurrentUserConnectionCount = e.snap.AcceptedConnectionCount()
	return stats
}

// Nodes exposes the live node array for rendering and debugging. Read-only
// for callers; positions update in place as the simulation ticks.
func (e *Engine) Nodes() []*model.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return e.simulation.Nodes()
}

// Edges exposes the live edge array.
func (e *Engine) Edges() []*model.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return nil
	}
	return e.simulation.Edges()
}

// ViewTransform returns the camera center and scale for the render layer.
func (e *Engine) ViewTransform() (x, y, scale float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.camera == nil {
		return 0, 0, 1
	}
	return e.camera.X, e.camera.Y, e.camera.Scale
}

// DragStart, Drag and DragEnd forward the host's pointer gestures to the
// simulation, which pins the node for the duration of the drag.
func (e *Engine) DragStart(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		e.simulation.DragStart(id)
	}
}

func (e *Engine) Drag(id string, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		e.simulation.Drag(id, x, y)
	}
}

func (e *Engine) DragEnd(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		e.simulation.DragEnd(id)
	}
}

// TierActions adapts the engine to the tier controller's side-effect sink.
type TierActions struct {
	e *Engine
}

// TierActions returns the adapter the host hands to the tier controller.
func (e *Engine) TierActions() *TierActions {
	return &TierActions{e: e}
}

func (a *TierActions) EnableQuiet()  { a.e.SetQuiet(true) }
func (a *TierActions) DisableQuiet() { a.e.SetQuiet(false) }
func (a *TierActions) FocusSelf()    { a.e.FocusNode(a.e.cfg.CurrentUserID, nil) }
func (a *TierActions) ClearFocus()   { a.e.ClearFocus() }
func (a *TierActions) RequestFullCommunity() {
	a.e.SetDisplayMode(model.ModeFullCommunity)
}
