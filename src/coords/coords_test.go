package coords

import (
	"image"
	"math/rand"
	"testing"
)

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestRegionToPixelsWellFormed(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	surfaces := [][2]int{{1920, 1080}, {2560, 1440}, {800, 600}, {1, 1}, {3, 1000}}
	for i := 0; i < 2000; i++ {
		s := surfaces[i%len(surfaces)]
		r := Rect{
			X1: rng.Intn(1400) - 200,
			Y1: rng.Intn(1400) - 200,
			X2: rng.Intn(1400) - 200,
			Y2: rng.Intn(1400) - 200,
		}
		px := RegionToPixels(r, s[0], s[1])
		if px.Min.X > px.Max.X || px.Min.Y > px.Max.Y {
			t.Fatalf("region %v on %v: low corner above high corner: %v", r, s, px)
		}
		for _, v := range []int{px.Min.X, px.Max.X} {
			if v < 0 || v > s[0] {
				t.Fatalf("region %v on %v: x %d outside surface", r, s, v)
			}
		}
		for _, v := range []int{px.Min.Y, px.Max.Y} {
			if v < 0 || v > s[1] {
				t.Fatalf("region %v on %v: y %d outside surface", r, s, v)
			}
		}
	}
}

func TestRegionToPixelsRounding(t *testing.T) {
	tests := []struct {
		region Rect
		w, h   int
		want   image.Rectangle
	}{
		{Rect{}, 1920, 1080, image.Rect(0, 0, 1920, 1080)},
		{Full, 1920, 1080, image.Rect(0, 0, 1920, 1080)},
		{Rect{150, 100, 850, 950}, 1920, 1080, image.Rect(288, 108, 1632, 1026)},
		{Rect{850, 950, 150, 100}, 1920, 1080, image.Rect(288, 108, 1632, 1026)},
		{Rect{-50, -50, 2000, 2000}, 100, 100, image.Rect(0, 0, 100, 100)},
	}
	for _, tt := range tests {
		got := RegionToPixels(tt.region, tt.w, tt.h)
		if got != tt.want {
			t.Errorf("RegionToPixels(%v, %d, %d) = %v, want %v", tt.region, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestNormRoundTripOnLargeSurfaces(t *testing.T) {
	regions := []Rect{{}, {150, 100, 850, 950}, {0, 0, 600, 1000}}
	surfaces := [][2]int{{3840, 2160}, {2560, 1600}}
	for _, region := range regions {
		for _, s := range surfaces {
			px := RegionToPixels(region, s[0], s[1])
			if px.Dx()-1 < Norm || px.Dy()-1 < Norm {
				continue
			}
			for x := 0; x <= Norm; x += 7 {
				for y := 0; y <= Norm; y += 11 {
					p := Point{x, y}
					back := PixelToNorm(NormToPixel(p, region, s[0], s[1]), region, s[0], s[1])
					if abs(back.X-p.X) > 1 || abs(back.Y-p.Y) > 1 {
						t.Fatalf("region %v surface %v: %v -> %v", region, s, p, back)
					}
				}
			}
		}
	}
}

func TestPixelRoundTripWithinOnePixel(t *testing.T) {
	regions := []Rect{{}, {150, 100, 850, 950}, {400, 400, 600, 600}}
	surfaces := [][2]int{{1024, 768}, {800, 600}, {640, 480}}
	for _, region := range regions {
		for _, s := range surfaces {
			px := RegionToPixels(region, s[0], s[1])
			for x := px.Min.X; x < px.Max.X; x += 3 {
				for y := px.Min.Y; y < px.Max.Y; y += 5 {
					p := image.Pt(x, y)
					back := NormToPixel(PixelToNorm(p, region, s[0], s[1]), region, s[0], s[1])
					if abs(back.X-p.X) > 1 || abs(back.Y-p.Y) > 1 {
						t.Fatalf("region %v surface %v: %v -> %v", region, s, p, back)
					}
				}
			}
		}
	}
}

func TestCornersMapToCropEdges(t *testing.T) {
	region := Rect{150, 100, 850, 950}
	px := RegionToPixels(region, 1920, 1080)
	if got := NormToPixel(Point{0, 0}, region, 1920, 1080); got != px.Min {
		t.Errorf("origin maps to %v, want %v", got, px.Min)
	}
	want := image.Pt(px.Max.X-1, px.Max.Y-1)
	if got := NormToPixel(Point{Norm, Norm}, region, 1920, 1080); got != want {
		t.Errorf("far corner maps to %v, want %v", got, want)
	}
}

func TestDegenerateCrop(t *testing.T) {
	region := Rect{500, 500, 500, 500}
	got := PixelToNorm(image.Pt(960, 540), region, 1920, 1080)
	if got != (Point{500, 500}) {
		t.Errorf("degenerate crop should map to center, got %v", got)
	}
	origin := RegionToPixels(region, 1920, 1080).Min
	if p := NormToPixel(Point{900, 100}, region, 1920, 1080); p != origin {
		t.Errorf("degenerate crop should map to origin %v, got %v", origin, p)
	}
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect(" 150, 100,850,950 ")
	if err != nil {
		t.Fatalf("ParseRect: %v", err)
	}
	if r != (Rect{150, 100, 850, 950}) {
		t.Errorf("unexpected rect %v", r)
	}
	if r.String() != "150,100,850,950" {
		t.Errorf("String() = %q", r.String())
	}
	if empty, err := ParseRect(""); err != nil || !empty.IsEmpty() {
		t.Errorf("empty string should give empty rect, got %v %v", empty, err)
	}
	for _, bad := range []string{"1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := ParseRect(bad); err == nil {
			t.Errorf("ParseRect(%q) should fail", bad)
		}
	}
}

func TestPixelRectToNorm(t *testing.T) {
	got := PixelRectToNorm(image.Rect(192, 108, 1728, 972), 1920, 1080)
	if got != (Rect{100, 100, 900, 900}) {
		t.Errorf("PixelRectToNorm = %v", got)
	}
	if got := PixelRectToNorm(image.Rect(0, 0, 10, 10), 0, 0); !got.IsEmpty() {
		t.Errorf("zero surface should give empty rect, got %v", got)
	}
}
