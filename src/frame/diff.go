package frame

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
)

// SampleStride is the byte distance between sampled offsets.
const SampleStride = 64

// Diff returns a change ratio in [0,1] between two frames, or -1 when they
// cannot be compared (empty, or different encoded length). Both frames are
// decoded and every SampleStride-th byte of the RGBA pixel stream is
// compared on its red, green and blue channels. Frames that do not decode
// to the same size are sampled on their encoded bytes instead.
func Diff(a, b Frame) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return -1
	}
	pa, pb := pixels(a), pixels(b)
	if pa != nil && pb != nil && len(pa) == len(pb) {
		return sampleRatio(pa, pb)
	}
	return sampleRatio(a, b)
}

func sampleRatio(a, b []byte) float64 {
	var diff, total int
	for i := 0; i+3 < len(b); i += SampleStride {
		diff += absDiff(a[i], b[i])
		diff += absDiff(a[i+1], b[i+1])
		diff += absDiff(a[i+2], b[i+2])
		total += 3 * 255
	}
	if total == 0 {
		return -1
	}
	return float64(diff) / float64(total)
}

func absDiff(x, y byte) int {
	if x > y {
		return int(x - y)
	}
	return int(y - x)
}

// pixels decodes f into a packed RGBA stream, or nil on failure.
func pixels(f Frame) []byte {
	img, err := png.Decode(bytes.NewReader(f))
	if err != nil {
		return nil
	}
	switch m := img.(type) {
	case *image.NRGBA:
		if m.Stride == m.Rect.Dx()*4 {
			return m.Pix
		}
	case *image.RGBA:
		if m.Stride == m.Rect.Dx()*4 {
			return m.Pix
		}
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba.Pix
}

// Decode is a convenience for callers that need the image itself.
func Decode(f Frame) (image.Image, error) {
	return png.Decode(bytes.NewReader(f))
}
