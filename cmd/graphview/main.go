package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/deckerd451/innovation-engine-sub000/pkg/engine"
	"github.com/deckerd451/innovation-engine-sub000/pkg/mcp"
	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
	"github.com/deckerd451/innovation-engine-sub000/pkg/notify"
	"github.com/deckerd451/innovation-engine-sub000/pkg/source"
	"github.com/deckerd451/innovation-engine-sub000/pkg/tier"
)

const (
	frameInterval = 33 * time.Millisecond

	// Terminal cells are taller than wide; the world-to-cell mapping keeps
	// the simulation surface roughly isotropic.
	cellWidth  = 8.0
	cellHeight = 16.0

	quietNodeCap = 40
)

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Bold(true)

	themeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	projStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	orgStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("109"))
	selfStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)

	// Person nodes cycle through a small palette keyed by id hash.
	personPalette = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("171")),
	}
)

type frameMsg time.Time

type engineReadyMsg struct {
	err error
}

type app struct {
	eng     *engine.Engine
	tierCtl *tier.Controller
	notices <-chan string

	spinner     spinner.Model
	width       int
	height      int
	ready       bool
	tierStarted bool
	initErr     error
	notice      string
	zoom        float64
	search      bool
	selected    string
	mode        model.DisplayMode
}

func newApp(eng *engine.Engine, tierCtl *tier.Controller, mode model.DisplayMode, notices <-chan string) *app {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &app{
		eng:     eng,
		tierCtl: tierCtl,
		notices: notices,
		spinner: s,
		zoom:    1.0,
		mode:    mode,
	}
}

func (a *app) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		a.initEngine(),
		frame(),
	)
}

func (a *app) initEngine() tea.Cmd {
	return func() tea.Msg {
		// Blocks until the first WindowSizeMsg supplies a surface.
		return engineReadyMsg{err: a.eng.Init(context.Background())}
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (a *app) sample() tier.Sample {
	return tier.Sample{
		Zoom:         a.zoom,
		NodeSelected: a.selected != "",
		SearchActive: a.search,
	}
}

func (a *app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.eng.SetSurface(float64(msg.Width)*cellWidth, float64(msg.Height-4)*cellHeight)

	case engineReadyMsg:
		if msg.err != nil {
			a.initErr = msg.err
			return a, nil
		}
		a.ready = true
		if !a.tierStarted {
			a.tierStarted = true
			a.tierCtl.Start(context.Background())
		}

	case spinner.TickMsg:
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case frameMsg:
		select {
		case msg := <-a.notices:
			a.notice = msg
		default:
		}
		if a.ready {
			// Calm mode pauses animation until the next interaction.
			if !a.tierCtl.Calm() {
				a.eng.Tick(frameInterval)
			}
			a.tierCtl.Observe(a.sample())
		}
		cmds = append(cmds, frame())

	case tea.KeyMsg:
		a.tierCtl.Touch()
		if a.initErr != nil {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "r":
				a.initErr = nil
				return a, a.initEngine()
			}
			return a, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "+", "=":
			a.zoom *= 1.15
		case "-":
			a.zoom /= 1.15
		case "0":
			a.zoom = 1.0
		case "tab":
			a.cycleSelection(1)
		case "shift+tab":
			a.cycleSelection(-1)
		case "enter":
			if a.selected != "" {
				a.eng.OpenNode(a.selected)
			}
		case "f":
			if a.selected != "" {
				a.eng.FocusNode(a.selected, nil)
			}
		case "c", "esc":
			a.selected = ""
			a.search = false
			a.notice = ""
			a.eng.ClearFocus()
		case "a":
			a.eng.ShowActivity()
		case "/":
			a.search = !a.search
		case "m":
			if a.mode == model.ModeFocused {
				a.mode = model.ModeFullCommunity
			} else {
				a.mode = model.ModeFocused
			}
			a.eng.SetDisplayMode(a.mode)
		case "r":
			a.eng.Refresh()
		}
		a.tierCtl.Observe(a.sample())
	}

	return a, tea.Batch(cmds...)
}

// cycleSelection steps through visible nodes in stable id order.
func (a *app) cycleSelection(dir int) {
	nodes := a.eng.Nodes()
	if len(nodes) == 0 {
		return
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	idx := -1
	for i, id := range ids {
		if id == a.selected {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(ids)) % len(ids)
	a.selected = ids[idx]
}

func (a *app) View() string {
	if a.initErr != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Failed to start: %v\n\n", a.initErr)) +
			subtleStyle.Render("  Press q to quit, r to retry\n")
	}
	if !a.ready || a.width == 0 {
		return fmt.Sprintf("\n%s Loading community graph...", a.spinner.View())
	}

	header := headerStyle.Render("Community Graph") + "  " + a.statusLine()
	canvas := a.renderCanvas(a.width, a.height-4)
	footer := subtleStyle.Render("tab select • enter open • f focus • +/- zoom • m mode • a activity • r refresh • / search • c clear • q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, canvas, footer)
}

func (a *app) statusLine() string {
	stats := a.eng.GetStats()
	parts := []string{
		okStyle.Render(fmt.Sprintf("%d people", stats.NodeCounts[model.NodePerson])),
		fmt.Sprintf("%d themes", stats.NodeCounts[model.NodeTheme]),
		fmt.Sprintf("%d connections", stats.CurrentUserConnectionCount),
		fmt.Sprintf("tier %d", a.tierCtl.Tier()),
		fmt.Sprintf("zoom %.2f", a.zoom),
	}
	if a.eng.Quiet() {
		parts = append(parts, subtleStyle.Render("quiet"))
	}
	if a.tierCtl.Calm() {
		parts = append(parts, subtleStyle.Render("calm"))
	}
	if a.search {
		parts = append(parts, selectedStyle.Render("search"))
	}
	if a.selected != "" {
		parts = append(parts, selectedStyle.Render("▸ "+a.selected))
	}
	if a.notice != "" {
		parts = append(parts, errorStyle.Render(a.notice))
	}
	return subtleStyle.Render(strings.Join(parts, " • "))
}

// renderCanvas projects world positions through the camera transform onto a
// character grid.
func (a *app) renderCanvas(cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}

	camX, camY, camScale := a.eng.ViewTransform()
	s := camScale * a.zoom

	nodes := a.eng.Nodes()
	if a.eng.Quiet() && len(nodes) > quietNodeCap {
		nodes = capForQuiet(nodes, quietNodeCap)
	}

	for _, n := range nodes {
		col := int((n.X-camX)*s/cellWidth) + cols/2
		row := int((n.Y-camY)*s/cellHeight) + rows/2
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		grid[row][col] = a.renderNode(n)
	}

	lines := make([]string, rows)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	return strings.Join(lines, "\n")
}

func (a *app) renderNode(n *model.Node) string {
	var glyph string
	var style lipgloss.Style
	switch {
	case n.IsCurrentUser:
		glyph, style = "◉", selfStyle
	case n.Kind == model.NodeTheme:
		glyph, style = "◯", themeStyle
	case n.Kind == model.NodeProject:
		glyph, style = "▴", projStyle
	case n.Kind == model.NodeOrganization:
		glyph, style = "■", orgStyle
	default:
		glyph = "●"
		style = personPalette[model.ColorIndex(n.ID, len(personPalette))]
	}

	if n.ID == a.selected {
		return selectedStyle.Render(glyph)
	}
	switch {
	case n.Opacity < 0.3:
		return faintStyle.Render("·")
	case n.Opacity < 0.7:
		return faintStyle.Render(glyph)
	default:
		return style.Render(glyph)
	}
}

// capForQuiet keeps the viewer, their connections, and then whatever fits.
func capForQuiet(nodes []*model.Node, limit int) []*model.Node {
	ranked := make([]*model.Node, len(nodes))
	copy(ranked, nodes)
	sort.SliceStable(ranked, func(i, j int) bool {
		return quietRank(ranked[i]) < quietRank(ranked[j])
	})
	return ranked[:limit]
}

func quietRank(n *model.Node) int {
	switch {
	case n.IsCurrentUser:
		return 0
	case n.IsConnectedToCurrentUser:
		return 1
	case n.Kind == model.NodeTheme:
		return 2
	default:
		return 3
	}
}

func main() {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}

	store, err := source.NewStore(config.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	notices := make(chan string, 4)
	engCfg := engine.Config{
		Source:         store,
		CurrentUserID:  config.UserID,
		Mode:           config.Mode,
		DebounceWindow: config.DebounceWindow,
		ReloadCooldown: config.ReloadCooldown,
		Notice: func(msg string) {
			select {
			case notices <- msg:
			default:
			}
		},
	}
	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		engCfg.Notifier = notify.NewRedisNotifier(client, "")
	}

	eng, err := engine.New(engCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}
	defer eng.Destroy()

	if config.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(config.MetricsAddr, mux); err != nil {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	if config.MCPStdio {
		// Headless: no terminal surface will ever arrive, so supply one.
		eng.SetSurface(1920, 1080)
		if err := eng.Init(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
			os.Exit(1)
		}
		if err := mcp.NewServer(eng).Serve(); err != nil {
			fmt.Fprintf(os.Stderr, "graphview: mcp server: %v\n", err)
			os.Exit(1)
		}
		return
	}

	tierCtl, err := tier.New(tier.Config{}, eng.TierActions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}
	defer tierCtl.Stop()

	p := tea.NewProgram(newApp(eng, tierCtl, config.Mode, notices), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}
}
