// Package display defines the render surface boundary between content
// providers and whatever actually drives the pixels. Hardware drivers
// live outside this module; the daemon ships a text-mode surface used in
// simulation and tests.
package display

import (
	"strings"
	"sync"
)

// Surface is the drawable handed to providers. Implementations must be
// safe for use from the rotation loop goroutine.
type Surface interface {
	// Clear resets the surface to blank.
	Clear()

	// DrawText writes text starting at cell (x, y). Text past the right
	// edge is clipped.
	DrawText(x, y int, text string)

	// Size returns the surface dimensions in cells.
	Size() (width, height int)
}

// TextSurface is an in-memory Surface holding a rune grid. It backs the
// simulation mode of the daemon and the rotation tests.
type TextSurface struct {
	mu     sync.Mutex
	width  int
	height int
	cells  [][]rune
}

// NewTextSurface creates a blank width x height surface.
func NewTextSurface(width, height int) *TextSurface {
	s := &TextSurface{width: width, height: height}
	s.Clear()
	return s
}

// Clear resets every cell to a space.
func (s *TextSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cells = make([][]rune, s.height)
	for y := range s.cells {
		row := make([]rune, s.width)
		for x := range row {
			row[x] = ' '
		}
		s.cells[y] = row
	}
}

// DrawText writes text at (x, y), clipping at the surface edges.
func (s *TextSurface) DrawText(x, y int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if y < 0 || y >= s.height {
		return
	}
	for i, r := range text {
		cx := x + i
		if cx < 0 {
			continue
		}
		if cx >= s.width {
			break
		}
		s.cells[y][cx] = r
	}
}

// Size returns the surface dimensions.
func (s *TextSurface) Size() (int, int) {
	return s.width, s.height
}

// Snapshot returns the surface contents as newline-joined rows, with
// trailing spaces trimmed. Used by tests and the simulation output.
func (s *TextSurface) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]string, s.height)
	for y, row := range s.cells {
		rows[y] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(rows, "\n")
}
