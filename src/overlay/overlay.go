// Package overlay describes drawable annotations in normalized space. An
// Overlay carries no behavior; the external renderer draws it onto a raw
// frame.
package overlay

import (
	"fmt"
	"math"
)

// Point is an [x, y] pair in normalized space.
type Point [2]int

// LabelStyle controls how a label is drawn.
type LabelStyle struct {
	FontSize int    `json:"font_size"`
	BG       string `json:"bg"`
	Color    string `json:"color"`
	Align    string `json:"align"`
}

// Overlay is one annotation: an ordered point list plus an optional label.
type Overlay struct {
	Points        []Point    `json:"points"`
	Closed        bool       `json:"closed"`
	Stroke        string     `json:"stroke"`
	Fill          string     `json:"fill"`
	Label         string     `json:"label"`
	LabelPosition Point      `json:"label_position"`
	LabelStyle    LabelStyle `json:"label_style"`
}

// Kind is the shape class of an overlay.
type Kind int

const (
	Marker Kind = iota
	Polyline
	Polygon
)

func (k Kind) String() string {
	switch k {
	case Marker:
		return "marker"
	case Polyline:
		return "polyline"
	case Polygon:
		return "polygon"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kind derives the shape class: a single point (or none) is a marker,
// otherwise the closed flag picks polygon or polyline.
func (o Overlay) Kind() Kind {
	switch {
	case len(o.Points) <= 1:
		return Marker
	case o.Closed:
		return Polygon
	default:
		return Polyline
	}
}

func plainStyle(color string) LabelStyle {
	return LabelStyle{FontSize: 10, Color: color, Align: "left"}
}

// Dot marks a single point.
func Dot(x, y int, label, color string) Overlay {
	if color == "" {
		color = "#00ff00"
	}
	return Overlay{
		Points:        []Point{{x, y}},
		Stroke:        color,
		Label:         label,
		LabelPosition: Point{x, y},
		LabelStyle:    plainStyle(color),
	}
}

// Box outlines the rectangle (x1,y1)-(x2,y2) with the label at its top-left.
func Box(x1, y1, x2, y2 int, label, stroke, fill string) Overlay {
	if stroke == "" {
		stroke = "#ff6600"
	}
	return Overlay{
		Points:        []Point{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}},
		Closed:        true,
		Stroke:        stroke,
		Fill:          fill,
		Label:         label,
		LabelPosition: Point{x1, y1},
		LabelStyle:    plainStyle(stroke),
	}
}

// Line draws an open polyline labelled at its first point.
func Line(points []Point, label, color string) Overlay {
	if color == "" {
		color = "#4488ff"
	}
	var at Point
	if len(points) > 0 {
		at = points[0]
	}
	return Overlay{
		Points:        points,
		Stroke:        color,
		Label:         label,
		LabelPosition: at,
		LabelStyle:    plainStyle(color),
	}
}

// Label is a text-only overlay anchored at (x, y).
func Label(x, y int, text string, style LabelStyle) Overlay {
	return Overlay{
		Points:        []Point{{x, y}},
		Label:         text,
		LabelPosition: Point{x, y},
		LabelStyle:    style,
	}
}

// ArrowShape sets arrow proportions in normalized units.
type ArrowShape struct {
	ShaftHalfWidth float64
	HeadLength     float64
	HeadHalfWidth  float64
}

// DefaultArrow is the shape used for primary arrows.
var DefaultArrow = ArrowShape{ShaftHalfWidth: 10, HeadLength: 30, HeadHalfWidth: 22}

// ArrowPoints returns the seven-point outline of an arrow from (fx,fy) to
// (tx,ty). Arrows shorter than 1.5 head lengths get a head 40% of their
// length. A zero-length arrow collapses to its start point.
func ArrowPoints(fx, fy, tx, ty int, shape ArrowShape) []Point {
	dx, dy := float64(tx-fx), float64(ty-fy)
	length := math.Hypot(dx, dy)
	if length < 1 {
		return []Point{{fx, fy}}
	}
	ux, uy := dx/length, dy/length
	nx, ny := -uy, ux

	headLen, headHW := shape.HeadLength, shape.HeadHalfWidth
	if length < shape.HeadLength*1.5 {
		headLen = length * 0.4
		headHW = headLen * 0.7
	}
	sx := float64(tx) - ux*headLen
	sy := float64(ty) - uy*headLen
	shaft := shape.ShaftHalfWidth

	pt := func(x, y float64) Point { return Point{int(x), int(y)} }
	return []Point{
		pt(float64(fx)+nx*shaft, float64(fy)+ny*shaft),
		pt(sx+nx*shaft, sy+ny*shaft),
		pt(sx+nx*headHW, sy+ny*headHW),
		{tx, ty},
		pt(sx-nx*headHW, sy-ny*headHW),
		pt(sx-nx*shaft, sy-ny*shaft),
		pt(float64(fx)-nx*shaft, float64(fy)-ny*shaft),
	}
}

// Arrow builds a filled arrow overlay. The caller sets the label.
func Arrow(fx, fy, tx, ty int, shape ArrowShape, stroke, fill string) Overlay {
	return Overlay{
		Points: ArrowPoints(fx, fy, tx, ty, shape),
		Closed: true,
		Stroke: stroke,
		Fill:   fill,
	}
}

// CursorArm is the half length of the cursor crosshair.
const CursorArm = 12

// Cursor draws a crosshair at (cx, cy) labelled with its coordinates.
func Cursor(cx, cy int) Overlay {
	return Overlay{
		Points: []Point{
			{cx - CursorArm, cy}, {cx + CursorArm, cy},
			{cx, cy}, {cx, cy - CursorArm}, {cx, cy + CursorArm},
		},
		Stroke:        "#00ff00",
		Label:         fmt.Sprintf("[%d,%d]", cx, cy),
		LabelPosition: Point{min(cx+18, 980), min(cy+18, 980)},
		LabelStyle: LabelStyle{
			FontSize: 11,
			BG:       "#000000",
			Color:    "#00ff00",
			Align:    "left",
		},
	}
}
