package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tehzhed/portnord/pkg/k8s"
	"github.com/tehzhed/portnord/pkg/tunnel"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		// Re-render; concurrent bulk toggles may have changed the registry.
		return m, tick()

	case bulkToggleMsg:
		m.statusMsg, m.errorMsg = formatToggleResult(msg.service, msg.result)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.moveDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveUp()
		return m, nil

	case key.Matches(msg, m.keys.Right):
		if svc, ok := m.selectedService(); ok && m.portCursor < 0 && len(svc.Ports) > 0 {
			m.portCursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.portCursor = -1
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		return m.handleToggle()
	}

	return m, nil
}

func (m *Model) moveDown() {
	svc, ok := m.selectedService()
	if !ok {
		return
	}
	if m.portCursor >= 0 {
		m.portCursor = (m.portCursor + 1) % len(svc.Ports)
		return
	}
	m.serviceCursor = (m.serviceCursor + 1) % len(m.services)
}

func (m *Model) moveUp() {
	svc, ok := m.selectedService()
	if !ok {
		return
	}
	if m.portCursor >= 0 {
		m.portCursor = (m.portCursor - 1 + len(svc.Ports)) % len(svc.Ports)
		return
	}
	m.serviceCursor = (m.serviceCursor - 1 + len(m.services)) % len(m.services)
}

// handleToggle toggles the highlighted port, or the whole service when the
// cursor is on the services pane. Single-port toggles run inline; a
// whole-service toggle runs as a background command and reports back in a
// bulkToggleMsg, registering each port as it completes.
func (m *Model) handleToggle() (tea.Model, tea.Cmd) {
	m.errorMsg = ""
	m.statusMsg = ""

	svc, ok := m.selectedService()
	if !ok {
		return m, nil
	}

	if m.portCursor >= 0 {
		port := svc.Ports[m.portCursor]
		if err := m.coordinator.TogglePort(context.Background(), svc.Name, port); err != nil {
			m.errorMsg = fmt.Sprintf("%s:%d: %v", svc.Name, port, err)
		}
		return m, nil
	}

	m.statusMsg = fmt.Sprintf("Toggling %s...", svc.Name)
	return m, m.toggleServiceCmd(svc)
}

func (m *Model) toggleServiceCmd(svc k8s.Service) tea.Cmd {
	return func() tea.Msg {
		result := m.coordinator.ToggleService(context.Background(), svc.Name, svc.Ports)
		return bulkToggleMsg{service: svc.Name, result: result}
	}
}

// formatToggleResult renders a bulk toggle outcome into a status line and an
// error line. Failures are reported per port; successes are summarized.
func formatToggleResult(service string, result *tunnel.ToggleResult) (status, errMsg string) {
	var parts []string
	if n := len(result.Started); n > 0 {
		parts = append(parts, fmt.Sprintf("%d started", n))
	}
	if n := len(result.Stopped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d stopped", n))
	}
	if len(parts) > 0 {
		status = fmt.Sprintf("%s: %s", service, strings.Join(parts, ", "))
	}

	if len(result.Errors) > 0 {
		ports := make([]int, 0, len(result.Errors))
		for port := range result.Errors {
			ports = append(ports, port)
		}
		sort.Ints(ports)
		msgs := make([]string, 0, len(ports))
		for _, port := range ports {
			msgs = append(msgs, fmt.Sprintf("%d: %v", port, result.Errors[port]))
		}
		errMsg = fmt.Sprintf("%s: %s", service, strings.Join(msgs, "; "))
	}
	return status, errMsg
}
