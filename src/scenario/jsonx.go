package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"screen-pilot/src/coords"
)

// Object is one decoded model JSON object with its values left raw, so
// routers can accept loosely typed fields.
type Object map[string]json.RawMessage

var errNotObject = errors.New("not a JSON object")

// ExtractJSON finds the first balanced {...} in raw and decodes it. Braces
// inside string literals are ignored. ok is false when there is no object
// or it does not decode.
func ExtractJSON(raw string) (Object, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			if inString {
				escaped = true
			}
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				var obj Object
				if err := json.Unmarshal([]byte(raw[start:i+1]), &obj); err != nil || obj == nil {
					return nil, false
				}
				return obj, true
			}
		}
	}
	return nil, false
}

func (o *Object) decode(raw json.RawMessage) error {
	var obj Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return err
	}
	if obj == nil {
		return errNotObject
	}
	*o = obj
	return nil
}

// Object returns the nested object under key.
func (o Object) Object(key string) (Object, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	var nested Object
	if err := nested.decode(raw); err != nil {
		return nil, false
	}
	return nested, true
}

// List returns the array under key with its elements left raw.
func (o Object) List(key string) ([]json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return nil, false
	}
	return list, true
}

// String renders the value under key as text: strings verbatim, numbers
// and booleans as written, anything else or null as "".
func (o Object) String(key string) string {
	return scalarText(o[key])
}

// Number returns the numeric value under key.
func (o Object) Number(key string) (float64, bool) {
	raw, ok := o[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// BBox returns the four numbers under key, truncated to integers and left
// unclamped.
func (o Object) BBox(key string) ([4]int, bool) {
	raw, ok := o[key]
	if !ok {
		return [4]int{}, false
	}
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err != nil || len(nums) != 4 {
		return [4]int{}, false
	}
	return [4]int{int(nums[0]), int(nums[1]), int(nums[2]), int(nums[3])}, true
}

func jsonString(raw json.RawMessage, s *string) error {
	if len(raw) == 0 {
		return errors.New("missing")
	}
	return json.Unmarshal(raw, s)
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	case '{', '[', 'n':
		return ""
	}
	return string(raw)
}

func rect(b [4]int) coords.Rect {
	return coords.Rect{X1: b[0], Y1: b[1], X2: b[2], Y2: b[3]}
}

// center is the floored midpoint of an unclamped box.
func center(b [4]int) (int, int) {
	return floorHalf(b[0] + b[2]), floorHalf(b[1] + b[3])
}

func floorHalf(v int) int {
	if v < 0 {
		return -((-v + 1) / 2)
	}
	return v / 2
}
