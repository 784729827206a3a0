package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testFrame(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return buf.Bytes()
}

func TestFromImageBytesScalesDown(t *testing.T) {
	t.Parallel()

	data := testFrame(t, 1920, 1080)
	out, err := FromImageBytes(data, Options{MaxWidth: 640, MaxHeight: 360})
	if err != nil {
		t.Fatalf("FromImageBytes failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 640 || bounds.Dy() != 360 {
		t.Errorf("Expected 640x360 preview, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFromImageBytesKeepsAspectRatio(t *testing.T) {
	t.Parallel()

	// A square frame bounded by 640x360 must come out 360x360.
	data := testFrame(t, 800, 800)
	out, err := FromImageBytes(data, Options{})
	if err != nil {
		t.Fatalf("FromImageBytes failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 360 || bounds.Dy() != 360 {
		t.Errorf("Expected 360x360 preview, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFromImageBytesSmallFramePassesThrough(t *testing.T) {
	t.Parallel()

	data := testFrame(t, 320, 180)
	out, err := FromImageBytes(data, Options{})
	if err != nil {
		t.Fatalf("FromImageBytes failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 320 || bounds.Dy() != 180 {
		t.Errorf("Expected frame within bounds untouched, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFromImageBytesGarbage(t *testing.T) {
	t.Parallel()

	if _, err := FromImageBytes([]byte("definitely not an image"), Options{}); err == nil {
		t.Error("Expected decode error for garbage bytes, got nil")
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	if opts.MaxWidth != DefaultMaxWidth {
		t.Errorf("Expected default width %d, got %d", DefaultMaxWidth, opts.MaxWidth)
	}
	if opts.MaxHeight != DefaultMaxHeight {
		t.Errorf("Expected default height %d, got %d", DefaultMaxHeight, opts.MaxHeight)
	}
	if opts.Quality != DefaultQuality {
		t.Errorf("Expected default quality %d, got %d", DefaultQuality, opts.Quality)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, opts.Timeout)
	}

	custom := Options{MaxWidth: 100, MaxHeight: 100, Quality: 50, Timeout: DefaultTimeout * 2}.withDefaults()
	if custom.MaxWidth != 100 || custom.Quality != 50 {
		t.Error("Expected explicit options to survive withDefaults")
	}
}
