package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tehzhed/portnord/pkg/k8s"
	"github.com/tehzhed/portnord/pkg/tunnel"
)

// tickInterval paces the refresh loop so registry changes made by concurrent
// bulk toggles show up without further input.
const tickInterval = 250 * time.Millisecond

// toggler is the slice of the toggle coordinator the UI needs.
type toggler interface {
	TogglePort(ctx context.Context, service string, port int) error
	ToggleService(ctx context.Context, service string, ports []int) *tunnel.ToggleResult
	StopAll(ctx context.Context)
}

// keyMap holds the dashboard's key bindings.
type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Toggle, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Left, k.Right}, {k.Toggle, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back to services"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "into ports"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle forwarding"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the bubbletea model for the dashboard. It owns the navigation
// cursor; tunnel state lives in the registry and is only read here.
type Model struct {
	namespace string
	services  []k8s.Service

	registry    *tunnel.Registry
	coordinator toggler

	serviceCursor int
	portCursor    int // -1 while navigating the services pane

	width  int
	height int

	errorMsg  string
	statusMsg string

	keys keyMap
	help help.Model
}

func NewModel(namespace string, services []k8s.Service, registry *tunnel.Registry, coordinator toggler) *Model {
	return &Model{
		namespace:   namespace,
		services:    services,
		registry:    registry,
		coordinator: coordinator,
		portCursor:  -1,
		width:       80,
		height:      24,
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
}

// Cleanup stops every remaining tunnel. Called after the program exits the
// alternate screen.
func (m *Model) Cleanup() {
	if m.coordinator != nil {
		m.coordinator.StopAll(context.Background())
	}
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

// tickMsg drives the periodic re-render.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// bulkToggleMsg carries the outcome of a whole-service toggle that ran in the
// background.
type bulkToggleMsg struct {
	service string
	result  *tunnel.ToggleResult
}

// selectedService returns the service under the cursor.
func (m *Model) selectedService() (k8s.Service, bool) {
	if len(m.services) == 0 {
		return k8s.Service{}, false
	}
	return m.services[m.serviceCursor], true
}
