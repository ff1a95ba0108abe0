package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBytes(t *testing.T) {
	img, format, err := DecodeBytes(pngBytes(t, solid(4, 3, color.NRGBA{R: 10, A: 255})))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}

// withDeclaredSize rewrites the IHDR dimensions of a PNG and fixes its CRC.
func withDeclaredSize(data []byte, w, h uint32) []byte {
	out := append([]byte(nil), data...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeBytesRejectsHugeHeader(t *testing.T) {
	small := pngBytes(t, solid(2, 2, color.NRGBA{B: 90, A: 255}))
	huge := withDeclaredSize(small, 20000, 20000)

	cfg, err := png.DecodeConfig(bytes.NewReader(huge))
	require.NoError(t, err)
	require.Equal(t, 20000, cfg.Width)

	_, _, err = DecodeBytes(huge)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _, err = Decode(bytes.NewReader(huge))
	assert.ErrorIs(t, err, ErrTooLarge)

	// a small lie passes the header check and fails on the pixel data
	_, _, err = DecodeBytes(withDeclaredSize(small, 64, 64))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTooLarge))
}

func TestFit(t *testing.T) {
	small := solid(100, 50, color.NRGBA{A: 255})
	assert.Same(t, image.Image(small), Fit(small, 320))

	wide := Fit(solid(1000, 500, color.NRGBA{A: 255}), 320)
	assert.Equal(t, image.Rect(0, 0, 320, 160), wide.Bounds())

	tall := Fit(solid(300, 900, color.NRGBA{A: 255}), 300)
	assert.Equal(t, image.Rect(0, 0, 100, 300), tall.Bounds())
}

func TestThumbnailIsJPEG(t *testing.T) {
	data, err := Thumbnail(solid(800, 600, color.NRGBA{G: 200, A: 255}))
	require.NoError(t, err)

	img, format, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestVisionPayload(t *testing.T) {
	url, err := VisionPayload(solid(10, 10, color.NRGBA{B: 255, A: 255}), VisionMaxSide)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
}

func TestApply_Pixels(t *testing.T) {
	src := solid(3, 3, color.NRGBA{R: 100, G: 150, B: 200, A: 255})

	tests := []struct {
		name   string
		filter string
		value  float64
		want   color.NRGBA
	}{
		{"brightness doubles", "brightness", 2, color.NRGBA{R: 200, G: 255, B: 255, A: 255}},
		{"brightness zero is black", "brightness", 0, color.NRGBA{A: 255}},
		{"grayscale", "grayscale", 1, color.NRGBA{R: 141, G: 141, B: 141, A: 255}},
		{"sepia clamps", "sepia", 1, color.NRGBA{R: 192, G: 171, B: 133, A: 255}},
		{"contrast stretches around mean luma", "contrast", 2, color.NRGBA{R: 59, G: 159, B: 255, A: 255}},
		{"saturation zero is gray", "saturation", 0, color.NRGBA{R: 141, G: 141, B: 141, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(src, tt.filter, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.(*image.NRGBA).NRGBAAt(1, 1))
		})
	}
}

func TestApply_Flip(t *testing.T) {
	src := solid(2, 1, color.NRGBA{A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})

	out, err := Apply(src, "flip_horizontal", 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.(*image.NRGBA).NRGBAAt(1, 0).R)
	assert.Equal(t, uint8(0), out.(*image.NRGBA).NRGBAAt(0, 0).R)
}

func TestRotate_ExpandsCanvas(t *testing.T) {
	out := Rotate(solid(40, 20, color.NRGBA{R: 255, A: 255}), 90)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 40, out.Bounds().Dy())

	diag := Rotate(solid(40, 40, color.NRGBA{R: 255, A: 255}), 45)
	assert.Greater(t, diag.Bounds().Dx(), 40)
	// uncovered corner is white
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, diag.NRGBAAt(0, 0))
}

func TestApply_AllFiltersRun(t *testing.T) {
	src := solid(8, 8, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
	for _, f := range Filters {
		out, err := Apply(src, f, 1)
		require.NoError(t, err, f)
		assert.NotNil(t, out, f)
	}
}

func TestApply_Unknown(t *testing.T) {
	_, err := Apply(solid(1, 1, color.NRGBA{}), "posterize", 1)
	assert.True(t, errors.Is(err, ErrUnknownFilter))
	assert.Contains(t, err.Error(), "posterize")
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(strings.Repeat("x", 300))
	assert.Equal(t, image.Rect(0, 0, PlaceholderWidth, PlaceholderHeight), img.Bounds())
	assert.Equal(t, placeholderBackground, img.NRGBAAt(0, 0))

	// some text pixels are dark
	dark := 0
	for x := 20; x < 20+7*100; x++ {
		for y := 160; y < 173 && x < PlaceholderWidth; y++ {
			if img.NRGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	assert.Positive(t, dark)
}

func TestWrap(t *testing.T) {
	lines := Wrap("the quick brown fox jumps over the lazy dog again and again", 20)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 20)
	}
	assert.Equal(t, "the quick brown fox", lines[0])
	assert.Empty(t, Wrap("   ", 10))
}

func TestStyleVariation(t *testing.T) {
	out := StyleVariation(solid(1024, 512, color.NRGBA{R: 80, G: 80, B: 80, A: 255}), "watercolor")
	assert.Equal(t, 512, out.Bounds().Dx())
	assert.Equal(t, 256, out.Bounds().Dy())
}

func TestReadEXIF_NoData(t *testing.T) {
	got := ReadEXIF(bytes.NewReader(pngBytes(t, solid(2, 2, color.NRGBA{A: 255}))))
	assert.Empty(t, got.Data)
	assert.False(t, got.HasGPS)
	assert.Nil(t, got.Latitude)
}

func TestDMSToDecimal(t *testing.T) {
	assert.InDelta(t, 48.8583, DMSToDecimal(48, 51, 29.88, "N", "S"), 1e-4)
	assert.InDelta(t, -33.8568, DMSToDecimal(33, 51, 24.48, "S", "S"), 1e-4)
	assert.InDelta(t, -2.2945, DMSToDecimal(2, 17, 40.2, "W", "W"), 1e-4)
}
