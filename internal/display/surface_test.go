package display

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextSurface_DrawText(t *testing.T) {
	t.Parallel()

	s := NewTextSurface(8, 2)
	s.DrawText(0, 0, "HELLO")
	s.DrawText(2, 1, "HI")

	assert.Equal(t, "HELLO\n  HI", s.Snapshot())
}

func TestTextSurface_ClipsAtEdges(t *testing.T) {
	t.Parallel()

	s := NewTextSurface(4, 2)
	s.DrawText(2, 0, "LONG TEXT")
	s.DrawText(-2, 1, "SHIFTED")
	s.DrawText(0, 5, "OFF SURFACE")
	s.DrawText(0, -1, "OFF SURFACE")

	assert.Equal(t, "  LO\nIFTE", s.Snapshot())
}

func TestTextSurface_Clear(t *testing.T) {
	t.Parallel()

	s := NewTextSurface(4, 2)
	s.DrawText(0, 0, "AB")
	s.Clear()

	assert.Equal(t, "\n", s.Snapshot())

	w, h := s.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 2, h)
}
