package face

// ContrastLocator is a deterministic detector for controlled captures: it treats the
// most frequent intensity as background and reports every connected blob that stands
// out from it by more than Threshold. Boxes are padded so crops keep some context.
type ContrastLocator struct {
	Threshold int
	MinSize   int
	Padding   float64
}

// NewContrastLocator returns a ContrastLocator with default tuning and the given
// minimum blob side.
func NewContrastLocator(minSize int) *ContrastLocator {
	return &ContrastLocator{Threshold: 32, MinSize: minSize, Padding: 0.1}
}

// Locate implements Locator. Regions come back in raster order of each blob's first
// pixel.
func (l *ContrastLocator) Locate(grid *PixelGrid) ([]Region, error) {
	if err := requireGray(grid); err != nil {
		return nil, err
	}

	bg := histogramMode(grid.Pix)
	fg := make([]bool, len(grid.Pix))
	for i, v := range grid.Pix {
		d := int(v) - int(bg)
		if d < 0 {
			d = -d
		}
		fg[i] = d > l.Threshold
	}

	w, h := grid.Width, grid.Height
	seen := make([]bool, len(fg))
	stack := make([]int, 0, 64)
	regions := make([]Region, 0)

	for start := range fg {
		if !fg[start] || seen[start] {
			continue
		}
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				q := ny*w + nx
				if fg[q] && !seen[q] {
					seen[q] = true
					stack = append(stack, q)
				}
			}
		}

		bw, bh := maxX-minX+1, maxY-minY+1
		if bw < l.MinSize || bh < l.MinSize {
			continue
		}
		padX, padY := int(float64(bw)*l.Padding), int(float64(bh)*l.Padding)
		r := Region{X: minX - padX, Y: minY - padY, Width: bw + 2*padX, Height: bh + 2*padY}
		regions = append(regions, r.clip(w, h))
	}
	return regions, nil
}

// histogramMode returns the most frequent sample, lowest value on ties.
func histogramMode(pix []uint8) uint8 {
	var hist [256]int
	for _, v := range pix {
		hist[v]++
	}
	mode := 0
	for v := 1; v < 256; v++ {
		if hist[v] > hist[mode] {
			mode = v
		}
	}
	return uint8(mode)
}
