package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrUnknownFilter is returned by Apply for an unsupported filter name.
var ErrUnknownFilter = errors.New("unknown filter type")

// Filters lists the accepted filter names.
var Filters = []string{
	"brightness", "contrast", "saturation", "sharpness", "blur", "sharpen",
	"edge_enhance", "grayscale", "sepia", "rotate", "flip_horizontal",
	"flip_vertical", "auto_enhance", "cartoon", "sketch",
}

// Apply runs the named filter. value is the enhancement factor for
// brightness/contrast/saturation/sharpness, the radius for blur and the
// angle in degrees (counter-clockwise) for rotate.
func Apply(img image.Image, filter string, value float64) (image.Image, error) {
	src := toNRGBA(img)
	switch filter {
	case "brightness":
		return brightness(src, value), nil
	case "contrast":
		return contrast(src, value), nil
	case "saturation":
		return saturation(src, value), nil
	case "sharpness":
		return blend(convolve(src, smoothKernel, 13, 0), src, value), nil
	case "blur":
		return boxBlur(src, int(value)), nil
	case "sharpen":
		return convolve(src, sharpenKernel, 16, 0), nil
	case "edge_enhance":
		return convolve(src, edgeEnhanceKernel, 2, 0), nil
	case "grayscale":
		return grayscale(src), nil
	case "sepia":
		return sepia(src), nil
	case "rotate":
		return Rotate(src, int(value)), nil
	case "flip_horizontal":
		return flip(src, true), nil
	case "flip_vertical":
		return flip(src, false), nil
	case "auto_enhance":
		return saturation(contrast(brightness(src, 1.1), 1.2), 1.1), nil
	case "cartoon":
		return cartoon(src), nil
	case "sketch":
		return sketch(src), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, filter)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// mapPixels applies fn to every pixel's RGB channels, keeping alpha.
func mapPixels(src *image.NRGBA, fn func(r, g, b uint8) (uint8, uint8, uint8)) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = fn(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

// blend interpolates from degenerate toward src by factor; values above 1
// extrapolate past src.
func blend(degenerate, src *image.NRGBA, factor float64) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(degenerate.Pix[i+c])
			dst.Pix[i+c] = clamp8(d + (float64(src.Pix[i+c])-d)*factor)
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

func brightness(src *image.NRGBA, factor float64) *image.NRGBA {
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		return clamp8(float64(r) * factor), clamp8(float64(g) * factor), clamp8(float64(b) * factor)
	})
}

func contrast(src *image.NRGBA, factor float64) *image.NRGBA {
	var sum float64
	n := 0
	for i := 0; i+3 < len(src.Pix); i += 4 {
		sum += luma(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
		n++
	}
	mean := 0.0
	if n > 0 {
		mean = math.Round(sum / float64(n))
	}
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		f := func(v uint8) uint8 { return clamp8(mean + (float64(v)-mean)*factor) }
		return f(r), f(g), f(b)
	})
}

func saturation(src *image.NRGBA, factor float64) *image.NRGBA {
	return blend(grayscale(src), src, factor)
}

func grayscale(src *image.NRGBA) *image.NRGBA {
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		l := clamp8(luma(r, g, b))
		return l, l, l
	})
}

func sepia(src *image.NRGBA) *image.NRGBA {
	return mapPixels(src, func(r, g, b uint8) (uint8, uint8, uint8) {
		fr, fg, fb := float64(r), float64(g), float64(b)
		return clamp8(math.Floor(0.393*fr + 0.769*fg + 0.189*fb)),
			clamp8(math.Floor(0.349*fr + 0.686*fg + 0.168*fb)),
			clamp8(math.Floor(0.272*fr + 0.534*fg + 0.131*fb))
	})
}

func flip(src *image.NRGBA, horizontal bool) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x, y
			if horizontal {
				sx = w - 1 - x
			} else {
				sy = h - 1 - y
			}
			copy(dst.Pix[dst.PixOffset(x, y):dst.PixOffset(x, y)+4], src.Pix[src.PixOffset(sx, sy):src.PixOffset(sx, sy)+4])
		}
	}
	return dst
}

// Rotate turns img counter-clockwise by degrees, growing the canvas to fit
// and filling uncovered corners with white.
func Rotate(img image.Image, degrees int) *image.NRGBA {
	src := toNRGBA(img)
	rad := float64(degrees) * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	w, h := float64(src.Rect.Dx()), float64(src.Rect.Dy())

	nw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin) - 1e-9))
	nh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos) - 1e-9))
	dst := image.NewNRGBA(image.Rect(0, 0, max(1, nw), max(1, nh)))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// Screen y grows downward, so a counter-clockwise turn uses -sin.
	cx, cy := w/2, h/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	m := f64.Aff3{
		cos, sin, ncx - cos*cx - sin*cy,
		-sin, cos, ncy + sin*cx - cos*cy,
	}
	draw.BiLinear.Transform(dst, m, src, src.Bounds(), draw.Over, nil)
	return dst
}

var (
	smoothKernel      = [9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1}
	sharpenKernel     = [9]float64{-2, -2, -2, -2, 32, -2, -2, -2, -2}
	edgeEnhanceKernel = [9]float64{-1, -1, -1, -1, 10, -1, -1, -1, -1}
	edgeMoreKernel    = [9]float64{-1, -1, -1, -1, 9, -1, -1, -1, -1}
	contourKernel     = [9]float64{-1, -1, -1, -1, 8, -1, -1, -1, -1}
)

// convolve applies a 3x3 kernel divided by scale plus offset. Edge pixels
// reuse their nearest neighbour.
func convolve(src *image.NRGBA, k [9]float64, scale, offset float64) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [3]float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					sx := min(max(x+kx, 0), w-1)
					sy := min(max(y+ky, 0), h-1)
					o := src.PixOffset(sx, sy)
					weight := k[(ky+1)*3+kx+1]
					acc[0] += weight * float64(src.Pix[o])
					acc[1] += weight * float64(src.Pix[o+1])
					acc[2] += weight * float64(src.Pix[o+2])
				}
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				dst.Pix[o+c] = clamp8(acc[c]/scale + offset)
			}
			dst.Pix[o+3] = src.Pix[src.PixOffset(x, y)+3]
		}
	}
	return dst
}

// boxBlur approximates a gaussian of the given radius with three box passes.
func boxBlur(src *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return src
	}
	out := src
	for i := 0; i < 3; i++ {
		out = boxPass(boxPass(out, radius, true), radius, false)
	}
	return out
}

func boxPass(src *image.NRGBA, r int, horizontal bool) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)
	span := float64(2*r + 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc [4]float64
			for d := -r; d <= r; d++ {
				sx, sy := x, y
				if horizontal {
					sx = min(max(x+d, 0), w-1)
				} else {
					sy = min(max(y+d, 0), h-1)
				}
				o := src.PixOffset(sx, sy)
				for c := 0; c < 4; c++ {
					acc[c] += float64(src.Pix[o+c])
				}
			}
			o := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = clamp8(acc[c] / span)
			}
		}
	}
	return dst
}

// cartoon flattens colors and darkens strong edges.
func cartoon(src *image.NRGBA) *image.NRGBA {
	smooth := boxBlur(src, 2)
	flat := mapPixels(smooth, func(r, g, b uint8) (uint8, uint8, uint8) {
		q := func(v uint8) uint8 { return v / 32 * 32 }
		return q(r), q(g), q(b)
	})
	edges := convolve(grayscale(boxBlur(src, 1)), contourKernel, 1, 0)
	for i := 0; i+3 < len(flat.Pix); i += 4 {
		if edges.Pix[i] > 40 {
			flat.Pix[i], flat.Pix[i+1], flat.Pix[i+2] = 0, 0, 0
		}
	}
	return flat
}

// sketch is a pencil effect: grayscale divided by its blurred inverse.
func sketch(src *image.NRGBA) *image.NRGBA {
	gray := grayscale(src)
	inv := mapPixels(gray, func(r, g, b uint8) (uint8, uint8, uint8) {
		return 255 - r, 255 - g, 255 - b
	})
	blurred := boxBlur(inv, 7)
	dst := image.NewNRGBA(src.Rect)
	for i := 0; i+3 < len(gray.Pix); i += 4 {
		denom := 255 - float64(blurred.Pix[i])
		v := 255.0
		if denom > 0 {
			v = float64(gray.Pix[i]) * 256 / denom
		}
		l := clamp8(v)
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = l, l, l, gray.Pix[i+3]
	}
	return dst
}

// StyleVariation is the local stand-in for a generated variation: a
// 512px copy with a style-specific effect and a "Style: …" label.
func StyleVariation(img image.Image, style string) *image.NRGBA {
	src := toNRGBA(Fit(img, VariationSide))
	var out *image.NRGBA
	switch style {
	case "cartoon":
		out = convolve(src, edgeMoreKernel, 1, 0)
	case "watercolor":
		out = convolve(convolve(src, smoothKernel, 13, 0), smoothKernel, 13, 0)
	case "artistic":
		out = convolve(src, contourKernel, 1, 255)
	default:
		out = src
	}
	DrawText(out, "Style: "+style, 10, 10, color.White)
	return out
}
