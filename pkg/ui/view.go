package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the two-pane dashboard: services on the left, the selected
// service's ports on the right, key bindings and namespace in the footer.
func (m *Model) View() string {
	paneHeight := m.height - FooterHeight
	if paneHeight < MinPaneHeight {
		paneHeight = MinPaneHeight
	}
	servicesWidth := m.width * ServicesPanePercent / 100
	if servicesWidth < MinPaneWidth {
		servicesWidth = MinPaneWidth
	}
	portsWidth := m.width - servicesWidth
	if portsWidth < MinPaneWidth {
		portsWidth = MinPaneWidth
	}

	panes := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderServicesPane(servicesWidth, paneHeight),
		m.renderPortsPane(portsWidth, paneHeight),
	)

	return lipgloss.JoinVertical(lipgloss.Left, panes, m.renderFooter())
}

func paneStyle(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width - 2).
		Height(height - 2)
}

func paneTitle(title string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorTitle)).
		Bold(true).
		Render(title)
}

// visibleWindow returns the half-open range of list entries that fit into
// rows, scrolled so the cursor stays visible.
func visibleWindow(total, cursor, rows int) (int, int) {
	if rows < 1 {
		rows = 1
	}
	if total <= rows {
		return 0, total
	}
	start := cursor - rows + 1
	if start < 0 {
		start = 0
	}
	return start, start + rows
}

func (m *Model) renderServicesPane(width, height int) string {
	rows := height - 3 // borders and title
	lines := []string{paneTitle(TitleServices)}
	start, end := visibleWindow(len(m.services), m.serviceCursor, rows)
	for i := start; i < end; i++ {
		svc := m.services[i]
		style := lipgloss.NewStyle().Italic(true)
		if m.registry.CountForService(svc.Name) > 0 {
			style = style.Underline(true)
		}
		if i == m.serviceCursor {
			style = style.Foreground(lipgloss.Color(ColorCursor)).Bold(true)
		}
		lines = append(lines, style.Render(svc.Name))
	}
	if len(m.services) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelp)).Render("(no services found)"))
	}
	return paneStyle(width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPortsPane(width, height int) string {
	rows := height - 3
	lines := []string{paneTitle(TitlePorts)}
	if svc, ok := m.selectedService(); ok {
		cursor := m.portCursor
		if cursor < 0 {
			cursor = 0
		}
		start, end := visibleWindow(len(svc.Ports), cursor, rows)
		for i := start; i < end; i++ {
			port := svc.Ports[i]
			style := lipgloss.NewStyle().Italic(true)
			if _, active := m.registry.Find(svc.Name, port); active {
				style = style.Underline(true)
			}
			if m.portCursor == i {
				style = style.Foreground(lipgloss.Color(ColorCursor)).Bold(true)
			}
			lines = append(lines, style.Render(fmt.Sprintf("%d", port)))
		}
	}
	return paneStyle(width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	helpView := m.help.View(m.keys)

	namespaceStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorNamespace)).
		Bold(true).
		Italic(true)
	namespaceView := fmt.Sprintf("%s: %s", TitleNamespace, namespaceStyle.Render(m.namespace))

	spacing := m.width - lipgloss.Width(helpView) - lipgloss.Width(namespaceView)
	var footer string
	if spacing > 0 {
		footer = lipgloss.JoinHorizontal(lipgloss.Left, helpView, strings.Repeat(" ", spacing), namespaceView)
	} else {
		footer = helpView
	}

	var messageText string
	if m.errorMsg != "" {
		messageText = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorError)).
			Render(fmt.Sprintf("ERROR: %s", m.errorMsg))
	} else if m.statusMsg != "" {
		messageText = lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorStatus)).
			Render(m.statusMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left, footer, messageText)
}
