package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/simple-arbitrage/pkg/ui/components"
)

// Connection names shown in the status bar.
const (
	ConnEthereum  = "Ethereum"
	ConnFlashbots = "Flashbots"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var startupOrder = []string{"config", "ethereum", "markets", "flashbots"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	opportunities *components.OpportunitiesComponent
	executions    *components.ExecutionsComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent

	keys KeyMap
	help help.Model

	phase        Phase
	welcomeStart time.Time

	ready        bool
	quitting     bool
	paused       bool
	width        int
	height       int
	currentBlock uint64
	gasPrice     float64
	markets      int
	tokens       int
	lastUpdate   time.Time
	lastScanTime time.Time
	errors       []ErrorEntry // last 3
	activityFeed []string

	startupComplete bool
	startupSteps    map[string]*StartupStep
	startupTime     time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		opportunities: components.NewOpportunitiesComponent(10),
		executions:    components.NewExecutionsComponent(6),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(ConnEthereum, ConnFlashbots),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		errors:        make([]ErrorEntry, 0, 3),
		activityFeed:  make([]string, 0, 6),
		startupSteps: map[string]*StartupStep{
			"config":    {Name: "Loading configuration", Status: "pending"},
			"ethereum":  {Name: "Connecting to Ethereum", Status: "pending"},
			"markets":   {Name: "Discovering markets", Status: "pending"},
			"flashbots": {Name: "Preparing Flashbots relay", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd sends a tick every 100ms for animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) startModules() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Send() must not be called from within Update
	if OnStartModules != nil {
		go OnStartModules()
	}
	return m
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			return m.startModules(), tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
			m.executions.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.startModules()
		}
		return m, tickCmd()

	case BlockMsg:
		m.currentBlock = msg.Number
		m.lastUpdate = time.Now()
		if msg.BaseFeeGwei > 0 {
			m.gasPrice = msg.BaseFeeGwei
		}
		st := m.stats.Stats()
		st.BlocksProcessed++
		m.stats.Update(st)
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Block #%d received", msg.Number))

	case ScanMsg:
		m.markets = msg.Markets
		m.tokens = msg.Tokens
		m.lastScanTime = time.Now()
		m.lastUpdate = time.Now()

		st := m.stats.Stats()
		st.Scans++
		st.Opportunities += int64(len(msg.Opportunities))
		st.AvgCycleMs += (float64(msg.Duration.Milliseconds()) - st.AvgCycleMs) / float64(st.Scans)
		m.stats.Update(st)

		if !m.paused {
			m.opportunities.Set(msg.BlockNumber, msg.Opportunities)
		}
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Scanned %d markets: %d crossed, %d ranked (%s)",
			msg.Markets, msg.Crossed, len(msg.Opportunities), msg.Duration.Round(time.Millisecond)))

	case OutcomeMsg:
		st := m.stats.Stats()
		switch msg.Row.State {
		case "submitted":
			st.Submitted++
		case "aborted":
			st.Aborted++
		}
		m.stats.Update(st)
		if !m.paused {
			m.executions.Add(msg.Row)
		}
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()
		if step, ok := m.startupSteps[strings.ToLower(msg.Name)]; ok {
			step.Status = "connecting"
			if msg.Connected {
				step.Status = "connected"
			}
		}

	case GasPriceMsg:
		m.gasPrice = msg.GweiPrice
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}
		st := m.stats.Stats()
		st.Errors++
		m.stats.Update(st)

	case LogMsg:
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("%s: %s", msg.Level, msg.Message))

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		m.startupComplete = true
		for _, step := range m.startupSteps {
			if step.Status != "connected" && step.Status != "done" {
				m.startupComplete = false
				break
			}
		}
	}

	return m, nil
}

// addActivity appends a timestamped line, keeping the last 6.
func addActivity(feed []string, message string) []string {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		if m.currentBlock == 0 && !m.startupComplete {
			return m.renderStartupScreen()
		}
	}

	var b strings.Builder

	b.WriteString(titleBar.Render(" Simple Arbitrage "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	left := m.opportunities.View()
	right := m.renderActivityFeed() + "\n\n" + m.executions.View()

	width := m.width
	if width == 0 {
		width = 120
	}
	if width > 140 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			panel.Width(width*3/5-2).Render(left),
			panel.Width(width*2/5-2).Render(right),
		))
	} else {
		b.WriteString(panel.Width(width - 4).Render(left))
		b.WriteString("\n")
		b.WriteString(panel.Width(width - 4).Render(right))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(badBold.Render("ERRORS"))
		b.WriteString(faint.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(bad.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(faint.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(warnBold.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(helpBar.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(section.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(faint.Render("  Waiting for blocks..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "Block #") {
			sb.WriteString(blockLine.Render("  " + activity))
		} else {
			sb.WriteString(faint.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(brand.Render(`
   ███████╗██╗███╗   ███╗██████╗ ██╗     ███████╗
   ██╔════╝██║████╗ ████║██╔══██╗██║     ██╔════╝
   ███████╗██║██╔████╔██║██████╔╝██║     █████╗
   ╚════██║██║██║╚██╔╝██║██╔═══╝ ██║     ██╔══╝
   ███████║██║██║ ╚═╝ ██║██║     ███████╗███████╗
   ╚══════╝╚═╝╚═╝     ╚═╝╚═╝     ╚══════╝╚══════╝
`))
	sb.WriteString("\n")
	sb.WriteString(faint.Render("          A R B I T R A G E   ·   W E T H   ·   F L A S H B O T S"))
	sb.WriteString("\n\n\n")
	sb.WriteString(good.Render(fmt.Sprintf("                  Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(faint.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(section.Render("  Simple Arbitrage"))
	sb.WriteString("\n\n")
	sb.WriteString(plainTitle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range startupOrder {
		step := m.startupSteps[k]

		var icon, statusText string
		var style lipgloss.Style
		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", good
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			icon = spinners[int(time.Since(m.startupTime).Milliseconds()/200)%len(spinners)]
			statusText, style = "Connecting...", warn
		case "failed":
			icon, statusText, style = "✗", "Failed", bad
		default:
			icon, statusText, style = "○", "Pending", faint
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			faint.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	sb.WriteString(faint.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n\n")
	sb.WriteString(faint.Render("  Waiting for first Ethereum block..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScanTime) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		parts = append(parts, goodBold.Render(spinners[idx]+" Scanning"))
	}

	parts = append(parts, fmt.Sprintf("Block: #%d", m.currentBlock))
	if m.gasPrice > 0 {
		parts = append(parts, fmt.Sprintf("Base fee: %.1f gwei", m.gasPrice))
	}
	if m.markets > 0 {
		parts = append(parts, fmt.Sprintf("Markets: %d (%d tokens)", m.markets, m.tokens))
	}
	parts = append(parts, m.status.View())

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, faint.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes. main sets it
// to begin loading modules.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
