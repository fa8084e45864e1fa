package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"raterc/internal/ui/theme"
)

var clockStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	Padding(0, 1)

// Clock renders remaining seconds as a boxed MM:SS badge. In low time the
// badge turns red and carries a warning.
func Clock(remaining int, low bool) string {
	if remaining < 0 {
		remaining = 0
	}
	face := fmt.Sprintf("%02d:%02d", remaining/60, remaining%60)
	if low {
		badge := clockStyle.BorderForeground(theme.Red).Render(theme.Danger.Render(face))
		return lipgloss.JoinHorizontal(lipgloss.Center, badge, " ", theme.Danger.Render("Time running out!"))
	}
	return clockStyle.BorderForeground(theme.Surface1).Render(theme.Title.Render(face))
}
