package styles

import "github.com/charmbracelet/lipgloss"

var (
	TITLE = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7d56f4"))

	INFO = lipgloss.NewStyle().
		Italic(true).
		Foreground(lipgloss.Color("#888888"))

	SUCCESS = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#28a745"))

	WARNING = lipgloss.NewStyle().
		Foreground(lipgloss.Color("3"))

	ERROR = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ee4b2b"))

	CELL = lipgloss.NewStyle().PaddingRight(2)
)

// Reachability renders a peer's connection state.
func Reachability(connected bool) string {
	if connected {
		return SUCCESS.Render("reachable")
	}
	return ERROR.Render("unreachable")
}
