package imagedecode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestStripDataURL(t *testing.T) {
	tests := map[string]string{
		"data:image/jpeg;base64,QUJD": "QUJD",
		"  QUJD  ":                    "QUJD",
		"QUJD":                        "QUJD",
		"data:image/png;base64":       "",
	}
	for in, want := range tests {
		if got := StripDataURL(in); got != want {
			t.Errorf("StripDataURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeStringPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(encodePNG(t, img))

	grid, err := NewDecoder().DecodeString(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid.Width != 4 || grid.Height != 3 || grid.Channels != 3 {
		t.Fatalf("unexpected geometry %dx%dx%d", grid.Width, grid.Height, grid.Channels)
	}
	o := (2*4 + 1) * 3
	if got := grid.Pix[o : o+3]; got[0] != 10 || got[1] != 20 || got[2] != 30 {
		t.Fatalf("unexpected pixel %v", got)
	}
}

func TestDecodeUnpaddedBase64(t *testing.T) {
	raw := encodePNG(t, image.NewGray(image.Rect(0, 0, 2, 2)))
	payload := base64.RawStdEncoding.EncodeToString(raw)
	if _, err := NewDecoder().DecodeString(payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	d := NewDecoder()
	for name, payload := range map[string]string{
		"not base64": "%%%not-base64%%%",
		"text":       base64.StdEncoding.EncodeToString([]byte("hello world")),
		"empty":      "",
		"prefix":     "data:image/png;base64,",
	} {
		if _, err := d.DecodeString(payload); !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%s: expected ErrInvalidImage, got %v", name, err)
		}
	}
}

func TestDecodeTruncatedPNG(t *testing.T) {
	raw := encodePNG(t, image.NewGray(image.Rect(0, 0, 32, 32)))
	if _, err := NewDecoder().Decode(raw[:len(raw)/2]); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDecodePixelLimit(t *testing.T) {
	raw := encodePNG(t, image.NewGray(image.Rect(0, 0, 20, 20)))
	d := &Decoder{MaxPixels: 100}
	if _, err := d.Decode(raw); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected pixel limit error, got %v", err)
	}
}
