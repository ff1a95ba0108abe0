// Package imaging decodes uploads, builds thumbnails, applies filters and
// renders placeholder illustrations.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailSize    = 320
	VisionMaxSide    = 2048
	FaceCountMaxSide = 1024
	VariationSide    = 512
	JPEGQuality      = 85
)

// MaxPixels bounds the declared width times height of a decoded image.
const MaxPixels = 50_000_000

// ErrTooLarge is returned when a header declares more than MaxPixels.
var ErrTooLarge = errors.New("image dimensions too large")

// Decode reads any supported format and returns the image and its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over an in-memory file. The header is checked
// against MaxPixels before any pixel buffer is allocated.
func DecodeBytes(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("decode image: %dx%d: %w", cfg.Width, cfg.Height, ErrTooLarge)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Fit scales img down so that neither side exceeds maxSide. Smaller images
// are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// Thumbnail returns a JPEG no larger than ThumbnailSize on either side.
func Thumbnail(img image.Image) ([]byte, error) {
	return EncodeJPEG(Fit(img, ThumbnailSize), JPEGQuality)
}

// EncodeJPEG flattens transparency onto white before encoding.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// VisionPayload resizes img to maxSide and returns it as a JPEG data URL.
func VisionPayload(img image.Image, maxSide int) (string, error) {
	data, err := EncodeJPEG(Fit(img, maxSide), JPEGQuality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// toNRGBA copies img into a zero-origin NRGBA buffer.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
