// Package action defines the actions a scenario asks the desktop to perform.
package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"screen-pilot/src/coords"
)

// Kind identifies what an Action does.
type Kind int

const (
	Unknown Kind = iota
	Click
	DoubleClick
	RightClick
	Type
	Key
	Hotkey
	ScrollUp
	ScrollDown
	DragStart
	DragEnd
)

var kindNames = map[Kind]string{
	Click:       "click",
	DoubleClick: "double_click",
	RightClick:  "right_click",
	Type:        "type",
	Key:         "key",
	Hotkey:      "hotkey",
	ScrollUp:    "scroll_up",
	ScrollDown:  "scroll_down",
	DragStart:   "drag_start",
	DragEnd:     "drag_end",
}

var kindByName = map[string]Kind{
	"type_text": Type,
	"press_key": Key,
}

func init() {
	for k, name := range kindNames {
		kindByName[name] = k
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire name to a Kind. Unrecognized names yield Unknown.
func ParseKind(name string) Kind {
	return kindByName[strings.ToLower(strings.TrimSpace(name))]
}

// Positional reports whether the kind targets a bbox.
func (k Kind) Positional() bool {
	switch k {
	case Click, DoubleClick, RightClick, ScrollUp, ScrollDown, DragStart, DragEnd:
		return true
	}
	return false
}

// DefaultBBox is used when an action names no location.
var DefaultBBox = coords.Rect{X1: 500, Y1: 500, X2: 500, Y2: 500}

// DefaultScrollClicks is the wheel count when Params is not a number.
const DefaultScrollClicks = 3

// MaxScrollClicks bounds a single scroll action.
const MaxScrollClicks = 50

// Action is one transient desktop operation.
type Action struct {
	Kind   Kind
	BBox   coords.Rect
	Params string
}

// New builds a positional action with a clamped bbox.
func New(kind Kind, bbox coords.Rect) Action {
	return Action{Kind: kind, BBox: bbox.Canon()}
}

// Text builds a parameter-only action (type, key, hotkey).
func Text(kind Kind, params string) Action {
	return Action{Kind: kind, BBox: DefaultBBox, Params: params}
}

// ScrollClicks returns the wheel count carried in Params, capped at
// MaxScrollClicks.
func (a Action) ScrollClicks() int {
	p := strings.TrimSpace(a.Params)
	if p == "" {
		return DefaultScrollClicks
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return DefaultScrollClicks
		}
	}
	n, err := strconv.Atoi(p)
	if err != nil || n > MaxScrollClicks {
		// Only overflow fails here, since p is all digits.
		return MaxScrollClicks
	}
	return n
}

type wire struct {
	Type   string          `json:"type"`
	BBox   []json.Number   `json:"bbox_2d,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	X      *json.Number    `json:"x,omitempty"`
	Y      *json.Number    `json:"y,omitempty"`
}

// MarshalJSON writes {"type", "bbox_2d", "params"}.
func (a Action) MarshalJSON() ([]byte, error) {
	b := a.BBox.Array()
	return json.Marshal(struct {
		Type   string `json:"type"`
		BBox   [4]int `json:"bbox_2d"`
		Params string `json:"params"`
	}{a.Kind.String(), b, a.Params})
}

// UnmarshalJSON accepts bbox_2d or a bare x/y point, and a string or
// numeric params. A missing location becomes DefaultBBox.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w wire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	out := Action{Kind: ParseKind(w.Type), BBox: DefaultBBox}

	switch {
	case len(w.BBox) == 4:
		var v [4]int
		for i, n := range w.BBox {
			f, err := n.Float64()
			if err != nil {
				return fmt.Errorf("bbox_2d[%d]: %w", i, err)
			}
			v[i] = int(f)
		}
		out.BBox = coords.Rect{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}.Canon()
	case len(w.BBox) != 0:
		return fmt.Errorf("bbox_2d must have 4 values, got %d", len(w.BBox))
	case w.X != nil && w.Y != nil:
		x, errX := w.X.Float64()
		y, errY := w.Y.Float64()
		if errX != nil || errY != nil {
			return fmt.Errorf("bad x/y point")
		}
		out.BBox = coords.Rect{X1: int(x), Y1: int(y), X2: int(x), Y2: int(y)}.Canon()
	}

	params, err := decodeParams(w.Params)
	if err != nil {
		return err
	}
	out.Params = params
	*a = out
	return nil
}

func decodeParams(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("params must be a string or number: %w", err)
	}
	return n.String(), nil
}
