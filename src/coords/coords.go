// Package coords maps between the fixed [0,1000] normalized grid used by
// model actions and overlays, and device pixels on the capture surface.
package coords

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Norm is the extent of the normalized grid on both axes.
const Norm = 1000

// Point is a position in normalized space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a normalized rectangle. The zero value means "no region", which
// callers treat as the entire surface.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Full covers the whole surface.
var Full = Rect{0, 0, Norm, Norm}

// Clamp bounds a normalized value to [0, Norm].
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > Norm {
		return Norm
	}
	return v
}

// IsEmpty reports whether r is the zero rectangle.
func (r Rect) IsEmpty() bool {
	return r == Rect{}
}

// Canon clamps every corner and swaps them so that X1<=X2 and Y1<=Y2.
func (r Rect) Canon() Rect {
	x1, y1, x2, y2 := Clamp(r.X1), Clamp(r.Y1), Clamp(r.X2), Clamp(r.Y2)
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Rect{x1, y1, x2, y2}
}

// Center returns the integer midpoint of r.
func (r Rect) Center() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// Array returns r in the [x1,y1,x2,y2] wire order.
func (r Rect) Array() [4]int {
	return [4]int{r.X1, r.Y1, r.X2, r.Y2}
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X1, r.Y1, r.X2, r.Y2)
}

// ParseRect parses "x1,y1,x2,y2". An empty string yields the zero Rect.
func ParseRect(s string) (Rect, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rect{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("region must be x1,y1,x2,y2, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("region component %d: %w", i, err)
		}
		v[i] = n
	}
	return Rect{v[0], v[1], v[2], v[3]}, nil
}

// resolve substitutes Full for an empty region.
func resolve(region Rect) Rect {
	if region.IsEmpty() {
		return Full
	}
	return region
}

// RegionToPixels converts a normalized region into a pixel rectangle on a
// surface of w x h pixels. Each coordinate is scaled with round-to-nearest
// and clamped to the surface; the result is always well formed, though it
// may be empty.
func RegionToPixels(region Rect, w, h int) image.Rectangle {
	r := resolve(region).Canon()
	return image.Rect(
		scale(r.X1, w), scale(r.Y1, h),
		scale(r.X2, w), scale(r.Y2, h),
	)
}

func scale(v, dim int) int {
	px := (v*dim + Norm/2) / Norm
	if px < 0 {
		return 0
	}
	if px > dim {
		return dim
	}
	return px
}

// NormToPixel maps a normalized point inside region to an absolute pixel.
// The region is resolved to pixels first; the point is then spread over
// (crop-1) pixels so that 0 and Norm land on the first and last pixel.
func NormToPixel(p Point, region Rect, w, h int) image.Point {
	px := RegionToPixels(region, w, h)
	return image.Point{
		X: px.Min.X + spread(Clamp(p.X), px.Dx()),
		Y: px.Min.Y + spread(Clamp(p.Y), px.Dy()),
	}
}

func spread(n, crop int) int {
	if crop <= 1 {
		return 0
	}
	return (n*(crop-1) + Norm/2) / Norm
}

// PixelToNorm is the inverse of NormToPixel. An axis whose crop is one pixel
// or less maps to the center (500).
func PixelToNorm(pt image.Point, region Rect, w, h int) Point {
	px := RegionToPixels(region, w, h)
	return Point{
		X: unspread(pt.X-px.Min.X, px.Dx()),
		Y: unspread(pt.Y-px.Min.Y, px.Dy()),
	}
}

func unspread(rel, crop int) int {
	if crop <= 1 {
		return Norm / 2
	}
	d := crop - 1
	num := rel * Norm
	if num < 0 {
		return 0
	}
	return Clamp((num + d/2) / d)
}

// PixelRectToNorm scales a pixel rectangle on a w x h surface straight into
// normalized space, without an active region. Used by the region selector.
func PixelRectToNorm(r image.Rectangle, w, h int) Rect {
	if w <= 0 || h <= 0 {
		return Rect{}
	}
	r = r.Canon()
	conv := func(v, dim int) int {
		return Clamp(int(math.Round(float64(v) * Norm / float64(dim))))
	}
	return Rect{
		X1: conv(r.Min.X, w),
		Y1: conv(r.Min.Y, h),
		X2: conv(r.Max.X, w),
		Y2: conv(r.Max.Y, h),
	}
}
