package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"badge-compliance-service/internal/domain/compliance"
)

// Box colors, one per verdict family.
var (
	ColorPersonWithID   = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	ColorRecognizedNoID = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	ColorUnknownNoID    = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	ColorIDCard         = color.RGBA{R: 30, G: 144, B: 255, A: 255}
	ColorText           = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

const jpegQuality = 85

// DecodeBase64 turns a base64 string, with or without a data URI prefix,
// into an image.
func DecodeBase64(s string) (image.Image, error) {
	if i := strings.Index(s, ","); i >= 0 {
		s = s[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return img, nil
}

// EncodeBase64 encodes the frame as base64 JPEG, without a data URI prefix.
func EncodeBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ToRGBA returns a mutable copy of the image for annotation.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

// DrawBox draws a 2px rectangle outline.
func DrawBox(dst *image.RGBA, box compliance.Box, col color.RGBA) {
	for t := 0; t < 2; t++ {
		for x := box.X1; x < box.X2; x++ {
			dst.SetRGBA(x, box.Y1+t, col)
			dst.SetRGBA(x, box.Y2-1-t, col)
		}
		for y := box.Y1; y < box.Y2; y++ {
			dst.SetRGBA(box.X1+t, y, col)
			dst.SetRGBA(box.X2-1-t, y, col)
		}
	}
}

// DrawLabel draws text on a filled background rectangle anchored at (x, y).
func DrawLabel(dst *image.RGBA, text string, x, y int, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	rect := image.Rect(x, y-height, x+width+4, y+2)
	rect = rect.Intersect(dst.Bounds())
	if !rect.Empty() {
		draw.Draw(dst, rect, &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: ColorText},
		Face: face,
		Dot:  fixed.P(x+2, y-2),
	}
	drawer.DrawString(text)
}

// Crop returns a copy of the region inside the box, clamped to the frame.
func Crop(img image.Image, box compliance.Box) image.Image {
	rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// SaveEvidence writes the cropped region as a JPEG named
// <identity>_<timestamp>.jpg under dir and returns the filename.
func SaveEvidence(dir, identityID string, ts time.Time, region image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create evidence dir %q: %w", dir, err)
	}

	filename := fmt.Sprintf("%s_%s.jpg", identityID, ts.Format("20060102_150405"))
	f, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, region, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode evidence image: %w", err)
	}
	return filename, nil
}

// Placeholder fabricates a black frame with an error label, returned when
// the input frame itself is unusable.
func Placeholder(width, height int, msg string) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	DrawLabel(dst, msg, width/8, height/2, color.RGBA{R: 200, A: 255})
	return dst
}
