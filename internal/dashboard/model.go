package dashboard

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/amdtop/internal/config"
	"github.com/rileyhilliard/amdtop/internal/monitor"
	"github.com/rileyhilliard/amdtop/internal/ui"
)

// LayoutMode represents the responsive layout mode based on terminal size.
type LayoutMode int

const (
	// LayoutMinimal is for terminals < 80 columns: values only, no graphs
	LayoutMinimal LayoutMode = iota
	// LayoutStandard is for terminals 80-140 columns: single column with graphs
	LayoutStandard
	// LayoutWide is for terminals 140+ columns: two columns
	LayoutWide
)

// Width breakpoints for layout modes
const (
	BreakpointStandard = 80
	BreakpointWide     = 140
)

// Model is the Bubble Tea model for the local dashboard. Sampling is driven
// by the engine's scheduler: every tick runs whichever tasks are due.
type Model struct {
	engine *monitor.Engine
	cfg    *config.Config
	now    func() time.Time

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	table   table.Model

	width      int
	height     int
	interval   time.Duration
	lastUpdate time.Time
	sampling   bool // a RunDue is in flight
	sampled    bool // at least one sample landed

	snapshot   monitor.Snapshot
	processes  []monitor.ProcessNetworkRecord
	advisories []string

	selected  int
	sortOrder SortOrder
	viewMode  ViewMode
	showHelp  bool
	quitting  bool
}

// tickMsg signals a scheduler tick.
type tickMsg time.Time

// sampledMsg reports which tasks ran for a tick.
type sampledMsg struct {
	ran  []string
	time time.Time
}

// reprobedMsg signals that capabilities were probed again.
type reprobedMsg struct{}

// processColumns are the process table's columns.
var processColumns = []ui.TableColumn{
	{Title: "PID", Width: 8},
	{Title: "Process", Width: 20},
	{Title: "Conns", Width: 6},
	{Title: "Down", Width: 12},
	{Title: "Up", Width: 12},
}

// NewModel creates a dashboard over engine. The engine should already be
// started so capability advisories are known before the first frame.
func NewModel(engine *monitor.Engine) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = s.Style.Foreground(ColorAccent)

	h := help.New()
	h.Styles.ShortKey = h.Styles.ShortKey.Foreground(ColorTextSecondary)
	h.Styles.ShortDesc = h.Styles.ShortDesc.Foreground(ColorTextMuted)

	m := Model{
		engine:     engine,
		cfg:        engine.Config(),
		now:        time.Now,
		keys:       defaultKeyMap(),
		help:       h,
		spinner:    s,
		table:      ui.NewTable(processColumns, nil),
		interval:   engine.Scheduler().TickInterval(),
		advisories: engine.Advisories(),
	}
	return m
}

// SetClock replaces the time source passed to the scheduler.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
}

// Init fires the first tick immediately. Update marks it in flight and
// starts the tick timer from there.
func (m Model) Init() tea.Cmd {
	now := m.now
	return tea.Batch(
		func() tea.Msg { return tickMsg(now()) },
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			m.table.SetCursor(m.selected)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if m.sampling {
			// Previous tick's tasks are still running; skip this one
			return m, m.tickCmd()
		}
		m.sampling = true
		return m, tea.Batch(m.tickCmd(), m.sampleCmd())

	case sampledMsg:
		m.sampling = false
		m.sampled = true
		m.lastUpdate = msg.time
		m.snapshot = m.engine.Snapshot()
		m.advisories = m.engine.Advisories()
		m.refreshProcesses()

	case reprobedMsg:
		m.advisories = m.engine.Advisories()
		m.snapshot.Capabilities = m.engine.Probe().Flags()

	case spinner.TickMsg:
		if m.sampled {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sampleCmd runs the due tasks off the UI goroutine. Each task carries its
// own timeout, so a hung tool cannot stall the dashboard.
func (m Model) sampleCmd() tea.Cmd {
	engine, now := m.engine, m.now
	return func() tea.Msg {
		t := now()
		ran := engine.RunDue(context.Background(), t)
		return sampledMsg{ran: ran, time: t}
	}
}

func (m Model) reprobeCmd() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		engine.Start(context.Background())
		return reprobedMsg{}
	}
}

// refreshProcesses re-sorts the snapshot's processes and keeps the
// selection on the same PID when it is still present.
func (m *Model) refreshProcesses() {
	var selectedPID int32 = -1
	if m.selected >= 0 && m.selected < len(m.processes) {
		selectedPID = m.processes[m.selected].PID
	}

	procs := append([]monitor.ProcessNetworkRecord(nil), m.snapshot.Processes...)
	sortProcesses(procs, m.sortOrder)
	m.processes = procs

	m.selected = 0
	for i, p := range procs {
		if p.PID == selectedPID {
			m.selected = i
			break
		}
	}

	rows := make([]table.Row, len(procs))
	for i, p := range procs {
		rows[i] = table.Row{
			strconv.Itoa(int(p.PID)),
			p.Name,
			strconv.Itoa(len(p.Connections)),
			FormatRate(p.Download),
			FormatRate(p.Upload),
		}
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
	m.table.SetCursor(m.selected)
}

// sortProcesses orders procs in place. Total keeps the engine's order,
// which already breaks ties by first appearance.
func sortProcesses(procs []monitor.ProcessNetworkRecord, order SortOrder) {
	switch order {
	case SortByDownload:
		sort.SliceStable(procs, func(i, j int) bool { return procs[i].Download > procs[j].Download })
	case SortByUpload:
		sort.SliceStable(procs, func(i, j int) bool { return procs[i].Upload > procs[j].Upload })
	case SortByName:
		sort.SliceStable(procs, func(i, j int) bool { return procs[i].Name < procs[j].Name })
	}
}

// SelectedProcess returns the highlighted process, if any.
func (m Model) SelectedProcess() (monitor.ProcessNetworkRecord, bool) {
	if m.selected < 0 || m.selected >= len(m.processes) {
		return monitor.ProcessNetworkRecord{}, false
	}
	return m.processes[m.selected], true
}

// LayoutMode returns the layout for the current terminal width.
func (m Model) LayoutMode() LayoutMode {
	switch {
	case m.width >= BreakpointWide:
		return LayoutWide
	case m.width >= BreakpointStandard || m.width == 0:
		return LayoutStandard
	default:
		return LayoutMinimal
	}
}

// SecondsSinceUpdate returns seconds since the last sample landed.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

// FormatRate formats a bytes-per-second rate, e.g. "1.5 MiB/s".
func FormatRate(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}
