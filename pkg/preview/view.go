package preview

// View is an immutable window over preview lines. Scrolling returns a new
// View; the line slice is shared and never modified.
type View struct {
	lines  []string
	offset int
	height int
}

// NewView creates a view showing height lines (minimum 1) from the top.
func NewView(lines []string, height int) View {
	if height < 1 {
		height = 1
	}
	return View{lines: lines, height: height}
}

// Len is the total number of lines.
func (v View) Len() int { return len(v.lines) }

// Offset is the index of the first visible line.
func (v View) Offset() int { return v.offset }

// Height is the number of visible lines.
func (v View) Height() int { return v.height }

// Visible returns the lines currently in the window.
func (v View) Visible() []string {
	end := v.offset + v.height
	if end > len(v.lines) {
		end = len(v.lines)
	}
	return v.lines[v.offset:end]
}

func (v View) maxOffset() int {
	if m := len(v.lines) - v.height; m > 0 {
		return m
	}
	return 0
}

// ScrollTo moves the window so offset is the first line, clamped.
func (v View) ScrollTo(offset int) View {
	if offset < 0 {
		offset = 0
	}
	if m := v.maxOffset(); offset > m {
		offset = m
	}
	v.offset = offset
	return v
}

// ScrollBy moves the window by n lines (negative scrolls up).
func (v View) ScrollBy(n int) View { return v.ScrollTo(v.offset + n) }

// PageDown scrolls one window height down.
func (v View) PageDown() View { return v.ScrollBy(v.height) }

// PageUp scrolls one window height up.
func (v View) PageUp() View { return v.ScrollBy(-v.height) }

// Top jumps to the first line.
func (v View) Top() View { return v.ScrollTo(0) }

// Bottom jumps so the last line is visible.
func (v View) Bottom() View { return v.ScrollTo(v.maxOffset()) }

// Resize changes the window height, keeping the offset valid.
func (v View) Resize(height int) View {
	if height < 1 {
		height = 1
	}
	v.height = height
	return v.ScrollTo(v.offset)
}
