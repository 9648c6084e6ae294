package components

import (
	"fmt"
	"strings"
)

const (
	filledChar = "■"
	emptyChar  = "□"
)

// Position renders where the cursor sits in the path, like: ■■□□□ 2/5
type Position struct {
	Current int // 1-based
	Total   int
	Width   int // character width of the gauge portion
}

// NewPosition creates a new Position instance.
func NewPosition(current, total, width int) Position {
	return Position{
		Current: current,
		Total:   total,
		Width:   width,
	}
}

// View returns the rendered gauge. An empty path renders nothing.
func (p Position) View() string {
	if p.Total <= 0 || p.Width <= 0 {
		return ""
	}

	current := p.Current
	if current < 1 {
		current = 1
	}
	if current > p.Total {
		current = p.Total
	}

	width := p.Width
	if p.Total < width {
		width = p.Total
	}
	filled := (current * width) / p.Total

	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, width-filled)
	return fmt.Sprintf("%s %d/%d", bar, current, p.Total)
}
