package imaging

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	PlaceholderWidth  = 640
	PlaceholderHeight = 360

	placeholderTextLimit = 100
	enhancedTextLimit    = 300
	wrapWidth            = 45
	maxWrappedLines      = 8
	lineHeight           = 18
)

var (
	placeholderBackground = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	enhancedBackground    = color.NRGBA{R: 240, G: 248, B: 255, A: 255}
	enhancedInk           = color.NRGBA{R: 30, G: 30, B: 30, A: 255}
)

// DrawText writes s with its top-left corner at (x, y).
func DrawText(dst draw.Image, s string, x, y int, c color.Color) {
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

func canvas(bg color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, PlaceholderWidth, PlaceholderHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return img
}

// Placeholder renders the first 100 characters of text on a light canvas.
func Placeholder(text string) *image.NRGBA {
	if strings.TrimSpace(text) == "" {
		text = "Generated Image"
	}
	img := canvas(placeholderBackground)
	DrawText(img, truncate(text, placeholderTextLimit), 20, 160, color.Black)
	return img
}

// EnhancedPlaceholder renders a longer, word-wrapped description.
func EnhancedPlaceholder(text string) *image.NRGBA {
	img := canvas(enhancedBackground)
	for i, line := range Wrap(truncate(text, enhancedTextLimit), wrapWidth) {
		if i == maxWrappedLines {
			break
		}
		DrawText(img, line, 20, 60+i*lineHeight, enhancedInk)
	}
	return img
}

// Wrap breaks text into lines of at most width characters on word
// boundaries. Words longer than width get a line of their own.
func Wrap(text string, width int) []string {
	var lines []string
	var cur strings.Builder
	for _, word := range strings.Fields(text) {
		if cur.Len() > 0 && len([]rune(cur.String()))+1+len([]rune(word)) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(word)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
