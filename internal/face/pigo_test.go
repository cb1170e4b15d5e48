package face

import (
	"image"
	"image/color"
	_ "image/jpeg"
	"os"
	"reflect"
	"testing"
)

func loadSampleFace(t *testing.T) *PixelGrid {
	t.Helper()
	f, err := os.Open("testdata/sample.jpg")
	if err != nil {
		t.Fatalf("open sample: %v", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	b := img.Bounds()
	grid := NewRGB(b.Dx(), b.Dy())
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			o := (y*grid.Width + x) * 3
			grid.Pix[o], grid.Pix[o+1], grid.Pix[o+2] = c.R, c.G, c.B
		}
	}
	return grid
}

func newDefaultPigo(t *testing.T) *PigoLocator {
	t.Helper()
	locator, err := LoadPigoLocator("", DefaultDetectorParams())
	if err != nil {
		t.Fatalf("load built-in cascade: %v", err)
	}
	return locator
}

func TestPigoLocatorFindsSampleFace(t *testing.T) {
	locator := newDefaultPigo(t)
	gray := loadSampleFace(t).Gray()

	regions, err := locator.Locate(gray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("expected at least one face in the sample image")
	}
	for _, r := range regions {
		if r.Area() == 0 || !r.Within(gray.Width, gray.Height) {
			t.Fatalf("region %+v outside %dx%d", r, gray.Width, gray.Height)
		}
	}

	again, err := locator.Locate(gray)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(regions, again) {
		t.Fatalf("detection not deterministic: %v vs %v", regions, again)
	}
}

func TestPigoVectorizeSampleFace(t *testing.T) {
	v := newTestVectorizer(newDefaultPigo(t))
	region, vec, err := v.DetectAndVectorize(loadSampleFace(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 16384 {
		t.Fatalf("expected 16384 samples, got %d", len(vec))
	}
	// The face occupies most of the portrait.
	if region.Width < 100 || region.Width != region.Height {
		t.Fatalf("unexpected face region %+v", region)
	}
}

func TestPigoLocatorUniformImage(t *testing.T) {
	g := NewGray(320, 400)
	for i := range g.Pix {
		g.Pix[i] = 128
	}
	regions, err := newDefaultPigo(t).Locate(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 0 {
		t.Fatalf("expected no regions, got %v", regions)
	}
}

func TestPigoLocatorRejectsColor(t *testing.T) {
	if _, err := newDefaultPigo(t).Locate(NewRGB(10, 10)); err == nil {
		t.Fatal("expected error for a color grid")
	}
}

func TestNewLocatorPigoDefaultsToBuiltInCascade(t *testing.T) {
	if _, err := NewLocator(DetectorPigo, "", DefaultDetectorParams()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewLocator(DetectorPigo, "testdata/missing", DefaultDetectorParams()); err == nil {
		t.Fatal("expected error for a missing cascade file")
	}
	if _, err := NewLocator(DetectorHaar, "", DefaultDetectorParams()); err == nil {
		t.Fatal("expected haar without a cascade path to fail")
	}
}
