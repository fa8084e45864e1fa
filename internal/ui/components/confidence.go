package components

import (
	"fmt"
	"strings"

	"raterc/internal/ui/theme"
)

var confidenceLabels = map[int]string{
	1: "not sure",
	3: "fairly sure",
	5: "very sure",
}

// ConfidenceScale renders a 1..top scale with the current value highlighted.
func ConfidenceScale(value, top int) string {
	cells := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		cell := fmt.Sprintf(" %d ", i)
		if i == value {
			cells = append(cells, theme.Chosen.Render(cell))
		} else {
			cells = append(cells, theme.Muted.Render(cell))
		}
	}
	line := strings.Join(cells, " ")
	if label, ok := confidenceLabels[value]; ok {
		line += "  " + theme.Muted.Render(label)
	}
	return line
}
