package screenshot

import (
	"fmt"
	"image"
	"log"

	"github.com/kbinani/screenshot"
	"golang.org/x/image/draw"

	"screen-pilot/src/coords"
	"screen-pilot/src/frame"
)

// Default output size for captures sent to the model.
const (
	DefaultWidth  = 640
	DefaultHeight = 640
)

// Grabber acquires the whole display surface.
type Grabber interface {
	Grab() (*image.RGBA, error)
}

// GrabberFunc adapts a function to Grabber.
type GrabberFunc func() (*image.RGBA, error)

func (f GrabberFunc) Grab() (*image.RGBA, error) { return f() }

// Display grabs the primary display.
type Display struct{}

func (Display) Grab() (*image.RGBA, error) {
	bounds, err := PrimaryBounds()
	if err != nil {
		return nil, err
	}
	return screenshot.CaptureRect(bounds)
}

// PrimaryBounds returns the bounds of the primary display (display 0).
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// SurfaceSize returns the primary display's pixel dimensions, or 0,0 when
// no display is available.
func SurfaceSize() (int, int) {
	b, err := PrimaryBounds()
	if err != nil {
		return 0, 0
	}
	return b.Dx(), b.Dy()
}

// Unit captures, crops, resamples and encodes frames.
type Unit struct {
	grabber Grabber
}

// NewUnit returns a capture unit backed by g, or by the primary display
// when g is nil.
func NewUnit(g Grabber) *Unit {
	if g == nil {
		g = Display{}
	}
	return &Unit{grabber: g}
}

// Capture grabs the display, crops it to region (empty region means the
// whole display) and resamples to width x height when both are positive
// and differ from the cropped size. Any failure yields an empty Frame.
func (u *Unit) Capture(region coords.Rect, width, height int) frame.Frame {
	img, err := u.grabber.Grab()
	if err != nil || img == nil {
		log.Printf("CAPTURE: grab failed: %v", err)
		return nil
	}
	b := img.Bounds()
	if b.Empty() {
		log.Printf("CAPTURE: grab returned an empty surface")
		return nil
	}

	src := img
	if !region.IsEmpty() {
		crop := coords.RegionToPixels(region, b.Dx(), b.Dy())
		src = cropRows(img, crop)
	}

	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if width > 0 && height > 0 && (sw != width || sh != height) {
		src = resample(src, width, height)
	}

	f, err := frame.EncodeImage(src)
	if err != nil {
		log.Printf("CAPTURE: encode failed: %v", err)
		return nil
	}
	return f
}

// cropRows copies the rows of crop (relative to img's origin) into a new
// packed image. An empty crop returns img unchanged.
func cropRows(img *image.RGBA, crop image.Rectangle) *image.RGBA {
	if crop.Dx() <= 0 || crop.Dy() <= 0 {
		return img
	}
	origin := img.Bounds().Min
	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	rowBytes := crop.Dx() * 4
	for y := 0; y < crop.Dy(); y++ {
		src := img.PixOffset(origin.X+crop.Min.X, origin.Y+crop.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rowBytes], img.Pix[src:src+rowBytes])
	}
	return out
}

func resample(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
