package dashboard

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SortOrder defines how the process table is sorted.
type SortOrder int

const (
	SortByTotal SortOrder = iota
	SortByDownload
	SortByUpload
	SortByName
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByDownload:
		return "download"
	case SortByUpload:
		return "upload"
	case SortByName:
		return "name"
	default:
		return "total"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 4)
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewOverview ViewMode = iota
	ViewProcess
)

// keyMap holds the dashboard's bindings. It implements help.KeyMap so the
// footer and the overlay are generated from the same definitions.
type keyMap struct {
	Quit    key.Binding
	Reprobe key.Binding
	Sort    key.Binding
	Up      key.Binding
	Down    key.Binding
	Expand  key.Binding
	Back    key.Binding
	Help    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Reprobe: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-probe")),
		Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connections")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Sort, k.Up, k.Down, k.Expand, k.Help}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Back},
		{k.Sort, k.Reprobe, k.Help, k.Quit},
	}
}

// HandleKeyMsg processes keyboard input. Returns true if the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	// Help toggle takes priority
	if key.Matches(msg, m.keys.Help) {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key.Matches(msg, m.keys.Back) {
		m.showHelp = false
		return true, nil
	}

	if m.viewMode == ViewProcess && key.Matches(msg, m.keys.Back) {
		m.viewMode = ViewOverview
		return true, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, m.keys.Reprobe):
		return true, m.reprobeCmd()

	case key.Matches(msg, m.keys.Sort):
		m.sortOrder = m.sortOrder.Next()
		m.refreshProcesses()
		return true, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.processes)-1 {
			m.selected++
		}
		return true, nil

	case key.Matches(msg, m.keys.Expand):
		if m.viewMode == ViewOverview && len(m.processes) > 0 {
			m.viewMode = ViewProcess
		}
		return true, nil
	}

	return false, nil
}
