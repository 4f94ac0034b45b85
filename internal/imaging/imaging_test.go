package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"badge-compliance-service/internal/domain/compliance"
)

func jpegBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeBase64RoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 24))
	encoded := jpegBase64(t, src)

	img, err := DecodeBase64(encoded)
	if err != nil {
		t.Fatalf("DecodeBase64: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("bounds = %v, want 32x24", b)
	}

	out, err := EncodeBase64(img)
	if err != nil {
		t.Fatalf("EncodeBase64: %v", err)
	}
	if out == "" || strings.Contains(out, ",") {
		t.Error("encoded output should be bare base64 without a data URI prefix")
	}
}

func TestDecodeBase64DataURIPrefix(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	encoded := "data:image/jpeg;base64," + jpegBase64(t, src)

	if _, err := DecodeBase64(encoded); err != nil {
		t.Errorf("data URI prefix should be stripped: %v", err)
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	if _, err := DecodeBase64("!!!"); err == nil {
		t.Error("expected an error for invalid base64")
	}
	if _, err := DecodeBase64(base64.StdEncoding.EncodeToString([]byte("not an image"))); err == nil {
		t.Error("expected an error for non-image bytes")
	}
}

func TestCropClampsToFrame(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	region := Crop(src, compliance.Box{X1: 80, Y1: 80, X2: 200, Y2: 200})

	if b := region.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("crop bounds = %v, want 20x20 after clamping", b)
	}
}

func TestDrawBoxStaysInBounds(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	// Must not panic on a box touching the frame edge.
	DrawBox(dst, compliance.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}, ColorIDCard)

	if got := dst.RGBAAt(0, 0); got != ColorIDCard {
		t.Errorf("corner pixel = %v, want border color", got)
	}
}

func TestSaveEvidence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "evidence")
	region := image.NewRGBA(image.Rect(0, 0, 40, 40))
	ts := time.Date(2025, 3, 10, 14, 30, 5, 0, time.UTC)

	filename, err := SaveEvidence(dir, "S001", ts, region)
	if err != nil {
		t.Fatalf("SaveEvidence: %v", err)
	}
	if filename != "S001_20250310_143005.jpg" {
		t.Errorf("filename = %q", filename)
	}
	if _, err := os.Stat(filepath.Join(dir, filename)); err != nil {
		t.Errorf("evidence file missing: %v", err)
	}
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(640, 480, "Input Error")
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{A: 255}) {
		t.Errorf("background pixel = %v, want opaque black", got)
	}
}
