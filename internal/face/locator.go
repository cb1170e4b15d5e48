package face

// Locator finds candidate face regions in a grayscale grid. Implementations return
// an empty slice, not an error, when nothing is found.
type Locator interface {
	Locate(grid *PixelGrid) ([]Region, error)
}

// LocatorFunc adapts a plain function to the Locator interface.
type LocatorFunc func(grid *PixelGrid) ([]Region, error)

// Locate calls f(grid).
func (f LocatorFunc) Locate(grid *PixelGrid) ([]Region, error) {
	return f(grid)
}

// DetectorParams tunes the multi-scale detectors.
type DetectorParams struct {
	// ScaleFactor is the step between successive window sizes.
	ScaleFactor float64
	// MinNeighbors is the number of overlapping raw hits needed to keep a detection.
	MinNeighbors int
	// MinSize is the smallest window side in pixels.
	MinSize int
	// MaxSize is the largest window side in pixels; 0 means the grid's shorter side.
	MaxSize int
}

// DefaultDetectorParams mirrors the parameters the enrolled data was produced with.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		ScaleFactor:  1.1,
		MinNeighbors: 4,
		MinSize:      20,
	}
}

func (p DetectorParams) maxSize(grid *PixelGrid) int {
	limit := min(grid.Width, grid.Height)
	if p.MaxSize <= 0 || p.MaxSize > limit {
		return limit
	}
	return p.MaxSize
}

func requireGray(grid *PixelGrid) error {
	if err := grid.Validate(); err != nil {
		return err
	}
	if grid.Channels != 1 {
		return ErrNotGrayscale
	}
	return nil
}

// groupRegions clusters raw window hits whose intersection over union exceeds
// overlap and averages each cluster. Clusters with fewer than minNeighbors members
// are dropped. Output order follows the first hit of each cluster.
func groupRegions(hits []Region, minNeighbors int, overlap float64) []Region {
	if minNeighbors < 1 {
		minNeighbors = 1
	}
	type cluster struct {
		sumX, sumY, sumW, sumH int
		count                  int
		seed                   Region
	}
	var clusters []*cluster
	for _, h := range hits {
		var target *cluster
		for _, c := range clusters {
			if iou(c.seed, h) > overlap {
				target = c
				break
			}
		}
		if target == nil {
			target = &cluster{seed: h}
			clusters = append(clusters, target)
		}
		target.sumX += h.X
		target.sumY += h.Y
		target.sumW += h.Width
		target.sumH += h.Height
		target.count++
	}

	out := make([]Region, 0, len(clusters))
	for _, c := range clusters {
		if c.count < minNeighbors {
			continue
		}
		out = append(out, Region{
			X:      c.sumX / c.count,
			Y:      c.sumY / c.count,
			Width:  c.sumW / c.count,
			Height: c.sumH / c.count,
		})
	}
	return out
}

func iou(a, b Region) float64 {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.X+a.Width, b.X+b.Width), min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := float64((x1 - x0) * (y1 - y0))
	union := float64(a.Area()+b.Area()) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
