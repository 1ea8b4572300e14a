package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders connection status in insertion order.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a status component with the named connections
// initially disconnected.
func NewStatusComponent(names ...string) *StatusComponent {
	s := &StatusComponent{}
	for _, n := range names {
		s.connections = append(s.connections, ConnectionStatus{Name: n})
	}
	return s
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// Connected reports whether the named connection is up.
func (s *StatusComponent) Connected(name string) bool {
	for _, conn := range s.connections {
		if conn.Name == name {
			return conn.Connected
		}
	}
	return false
}

// View renders the connections on one line.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	up := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	down := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	parts := make([]string, 0, len(s.connections))
	for _, conn := range s.connections {
		if !conn.Connected {
			parts = append(parts, down.Render("○ "+conn.Name+" (disconnected)"))
			continue
		}
		label := "● " + conn.Name
		if conn.Latency > 0 {
			label += fmt.Sprintf(" (%dms)", conn.Latency.Milliseconds())
		}
		parts = append(parts, up.Render(label))
	}
	return strings.Join(parts, "  │  ")
}
