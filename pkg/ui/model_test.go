package ui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tehzhed/portnord/pkg/k8s"
	"github.com/tehzhed/portnord/pkg/tunnel"
)

// recordingToggler records toggle calls and returns canned outcomes.
type recordingToggler struct {
	portCalls    []string
	serviceCalls []string
	portErr      error
	result       *tunnel.ToggleResult
	stopped      bool
}

func (r *recordingToggler) TogglePort(ctx context.Context, service string, port int) error {
	r.portCalls = append(r.portCalls, service)
	return r.portErr
}

func (r *recordingToggler) ToggleService(ctx context.Context, service string, ports []int) *tunnel.ToggleResult {
	r.serviceCalls = append(r.serviceCalls, service)
	return r.result
}

func (r *recordingToggler) StopAll(ctx context.Context) {
	r.stopped = true
}

func testServices() []k8s.Service {
	return []k8s.Service{
		{Name: "api", Ports: []int{8000}},
		{Name: "web", Ports: []int{8080, 9090}},
	}
}

func newTestModel(toggler *recordingToggler) *Model {
	return NewModel("team-a", testServices(), tunnel.NewRegistry(), toggler)
}

func keyPress(m *Model, keys ...string) *Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(*Model)
	}
	return m
}

func TestNavigationWrapsAcrossServices(t *testing.T) {
	m := newTestModel(&recordingToggler{})

	m = keyPress(m, "down")
	assert.Equal(t, 1, m.serviceCursor)

	m = keyPress(m, "down")
	assert.Equal(t, 0, m.serviceCursor, "cursor wraps past the last service")

	m = keyPress(m, "up")
	assert.Equal(t, 1, m.serviceCursor, "cursor wraps backwards too")
}

func TestRightEntersPortsPaneLeftLeavesIt(t *testing.T) {
	m := newTestModel(&recordingToggler{})
	assert.Equal(t, -1, m.portCursor)

	m = keyPress(m, "down", "right")
	assert.Equal(t, 0, m.portCursor)

	m = keyPress(m, "down")
	assert.Equal(t, 1, m.portCursor)
	assert.Equal(t, 1, m.serviceCursor, "service cursor stays put while in ports pane")

	m = keyPress(m, "down")
	assert.Equal(t, 0, m.portCursor, "port cursor wraps within the service")

	m = keyPress(m, "left")
	assert.Equal(t, -1, m.portCursor)
}

func TestTogglePortOnHighlightedPort(t *testing.T) {
	toggler := &recordingToggler{}
	m := newTestModel(toggler)

	m = keyPress(m, "down", "right", "enter")

	require.Equal(t, []string{"web"}, toggler.portCalls)
	assert.Empty(t, toggler.serviceCalls)
	assert.Empty(t, m.errorMsg)
}

func TestTogglePortFailureShowsError(t *testing.T) {
	toggler := &recordingToggler{portErr: errors.New("port already bound")}
	m := newTestModel(toggler)

	m = keyPress(m, "right", "enter")

	assert.Contains(t, m.errorMsg, "api:8000")
	assert.Contains(t, m.errorMsg, "port already bound")
}

func TestToggleServiceRunsInBackground(t *testing.T) {
	toggler := &recordingToggler{
		result: &tunnel.ToggleResult{Started: []int{8080, 9090}, Errors: map[int]error{}},
	}
	m := newTestModel(toggler)

	next, cmd := keyPress(m, "down").handleToggle()
	m = next.(*Model)
	require.NotNil(t, cmd)
	assert.Equal(t, "Toggling web...", m.statusMsg)

	msg := cmd()
	bulk, ok := msg.(bulkToggleMsg)
	require.True(t, ok)
	assert.Equal(t, "web", bulk.service)
	require.Equal(t, []string{"web"}, toggler.serviceCalls)

	next, _ = m.Update(msg)
	m = next.(*Model)
	assert.Equal(t, "web: 2 started", m.statusMsg)
	assert.Empty(t, m.errorMsg)
}

func TestFormatToggleResultPartialFailure(t *testing.T) {
	result := &tunnel.ToggleResult{
		Started: []int{8080},
		Errors:  map[int]error{9090: errors.New("no pod matching service name")},
	}

	status, errMsg := formatToggleResult("web", result)
	assert.Equal(t, "web: 1 started", status)
	assert.Equal(t, "web: 9090: no pod matching service name", errMsg)
}

func TestFormatToggleResultStopped(t *testing.T) {
	result := &tunnel.ToggleResult{Stopped: []int{8080, 9090}, Errors: map[int]error{}}

	status, errMsg := formatToggleResult("web", result)
	assert.Equal(t, "web: 2 stopped", status)
	assert.Empty(t, errMsg)
}

func TestViewShowsNamespaceAndServices(t *testing.T) {
	m := newTestModel(&recordingToggler{})
	m.width = 100
	m.height = 30

	out := m.View()
	assert.Contains(t, out, "team-a")
	assert.Contains(t, out, "api")
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "8000")
}

func TestViewScrollsLongServiceList(t *testing.T) {
	services := make([]k8s.Service, 20)
	for i := range services {
		services[i] = k8s.Service{Name: fmt.Sprintf("svc-%02d", i), Ports: []int{8000 + i}}
	}
	m := NewModel("team-a", services, tunnel.NewRegistry(), &recordingToggler{})
	m.width = 80
	m.height = 12 // room for 5 entries per pane

	out := m.View()
	assert.Contains(t, out, "svc-00")
	assert.NotContains(t, out, "svc-19", "entries past the pane height are not rendered")

	m.serviceCursor = 19
	out = m.View()
	assert.Contains(t, out, "svc-19", "window follows the cursor")
	assert.NotContains(t, out, "svc-00")
}

func TestVisibleWindowKeepsCursorInRange(t *testing.T) {
	start, end := visibleWindow(3, 0, 5)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, end, "short lists are shown in full")

	start, end = visibleWindow(20, 0, 5)
	assert.Equal(t, 0, start)
	assert.Equal(t, 5, end)

	start, end = visibleWindow(20, 12, 5)
	assert.Equal(t, 8, start)
	assert.Equal(t, 13, end, "cursor sits on the window's last row")
}

func TestViewWithNoServices(t *testing.T) {
	m := NewModel("team-a", nil, tunnel.NewRegistry(), &recordingToggler{})

	out := m.View()
	assert.Contains(t, out, "(no services found)")
}

func TestCleanupStopsAllTunnels(t *testing.T) {
	toggler := &recordingToggler{}
	m := newTestModel(toggler)

	m.Cleanup()
	assert.True(t, toggler.stopped)
}
