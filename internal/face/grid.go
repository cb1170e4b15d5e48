package face

import (
	"errors"
	"fmt"
)

// Canonical resolution every face crop is resized to before flattening.
const (
	DefaultCanonicalWidth  = 128
	DefaultCanonicalHeight = 128
)

var (
	// ErrNoFaceDetected is returned when no face is found in the image.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrOutOfBounds is returned when a region does not fit inside its grid.
	ErrOutOfBounds = errors.New("region out of bounds")
	// ErrNotGrayscale is returned when a locator receives a multi-channel grid.
	ErrNotGrayscale = errors.New("grid is not grayscale")
)

// PixelGrid is a row-major buffer of 8-bit samples with 1 (gray) or 3 (RGB) channels.
type PixelGrid struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewGray allocates a zeroed single channel grid.
func NewGray(width, height int) *PixelGrid {
	return &PixelGrid{Width: width, Height: height, Channels: 1, Pix: make([]uint8, width*height)}
}

// NewRGB allocates a zeroed three channel grid.
func NewRGB(width, height int) *PixelGrid {
	return &PixelGrid{Width: width, Height: height, Channels: 3, Pix: make([]uint8, width*height*3)}
}

// Validate checks that the buffer matches the declared geometry.
func (g *PixelGrid) Validate() error {
	if g == nil {
		return errors.New("nil grid")
	}
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	if g.Channels != 1 && g.Channels != 3 {
		return fmt.Errorf("unsupported channel count %d", g.Channels)
	}
	if len(g.Pix) != g.Width*g.Height*g.Channels {
		return fmt.Errorf("grid buffer holds %d samples, want %d", len(g.Pix), g.Width*g.Height*g.Channels)
	}
	return nil
}

// GrayAt returns the sample at (x, y) of a single channel grid.
func (g *PixelGrid) GrayAt(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// SetGray writes the sample at (x, y) of a single channel grid.
func (g *PixelGrid) SetGray(x, y int, v uint8) {
	g.Pix[y*g.Width+x] = v
}

// Gray returns the grid itself when it is already single channel, otherwise a new
// grid converted with the 0.299/0.587/0.114 luma weights.
func (g *PixelGrid) Gray() *PixelGrid {
	if g.Channels == 1 {
		return g
	}
	out := NewGray(g.Width, g.Height)
	for i := range out.Pix {
		r := uint32(g.Pix[i*3])
		gr := uint32(g.Pix[i*3+1])
		b := uint32(g.Pix[i*3+2])
		// Fixed point weights summing to 1<<16.
		out.Pix[i] = uint8((19595*r + 38470*gr + 7471*b + 1<<15) >> 16)
	}
	return out
}

// Region is a rectangle delimiting a detected face inside a PixelGrid.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns width times height.
func (r Region) Area() int {
	return r.Width * r.Height
}

// Within reports whether the region is non-empty and fully inside a width x height grid.
func (r Region) Within(width, height int) bool {
	return r.Width > 0 && r.Height > 0 &&
		r.X >= 0 && r.Y >= 0 &&
		r.X+r.Width <= width && r.Y+r.Height <= height
}

// clip intersects the region with a width x height grid.
func (r Region) clip(width, height int) Region {
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.Width, width), min(r.Y+r.Height, height)
	if x1 <= x0 || y1 <= y0 {
		return Region{}
	}
	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// FeatureVector is a flattened canonical face crop with samples in [0, 1].
type FeatureVector []float32
