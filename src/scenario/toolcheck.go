package scenario

import (
	"fmt"
	"strings"

	"screen-pilot/src/action"
	"screen-pilot/src/coords"
	"screen-pilot/src/overlay"
)

const toolcheckPrompt = `You are a Windows 11 desktop tester. You see a screenshot.
Your goal: test every available action type one by one.

You must test these actions IN ORDER, one per turn:
  1. click - Open Start menu (click the taskbar center)
  2. type - Type 'notepad' in the Start search
  3. key - Press Enter to open Notepad
  4. click - Click inside the Notepad text area
  5. type - Type 'Hello Franz Test' in Notepad
  6. hotkey - Press Ctrl+A to select all text
  7. hotkey - Press Ctrl+C to copy
  8. hotkey - Press Ctrl+V to paste (duplicates text)
  9. scroll_up - Scroll up in Notepad
  10. scroll_down - Scroll down in Notepad
  11. hotkey - Press Alt+F4 to close Notepad
  12. click - Click 'Don't Save' if prompted
  13. click - Open Start menu again
  14. type - Type 'mspaint'
  15. key - Press Enter to open Paint
  16. click - Click on Paint canvas
  17. drag_start + drag_end - Draw a line in Paint
  18. double_click - Double click on canvas
  19. right_click - Right click on canvas
  20. key - Press Escape to close any menu

Coordinates are [x1,y1,x2,y2], integers 0 to 1000.

Respond with ONLY a JSON object:
{
  "step": 1,
  "test": "What action type you are testing",
  "do": [{"type": "click", "bbox_2d": [x1,y1,x2,y2], "params": ""}],
  "result": "What you expect to happen",
  "next_test": "What you will test next"
}

One action type per turn. Be methodical.
Output ONLY JSON. No other text.`

const toolcheckSeed = `{"step":1,"test":"click - Open Start menu",` +
	`"do":[{"type":"click","bbox_2d":[490,980,510,1000],"params":""}],` +
	`"result":"Start menu should open",` +
	`"next_test":"type - Type notepad in search"}`

// toolcheckBBox is used for actions that arrive without a usable bbox.
var toolcheckBBox = coords.Rect{X1: 490, Y1: 490, X2: 510, Y2: 510}

func init() {
	Register(Toolcheck())
}

// Toolcheck walks the model through every action type on a Windows
// desktop, one step per turn, and labels each step on the frame.
func Toolcheck() Definition {
	cfg := DefaultConfig()
	cfg.VLMTemperature = 0.4
	cfg.VLMTopP = 0.9
	cfg.VLMMaxTokens = 700
	cfg.CaptureDelaySeconds = 2
	cfg.SystemPrompt = toolcheckPrompt
	cfg.SeedVLMText = toolcheckSeed
	cfg.ChangeThreshold = 0.005
	return Definition{
		Name:          "toolcheck",
		Description:   "exercises every action type step by step",
		Config:        cfg,
		Route:         toolcheckRoute,
		RunCycle:      StandardCycle(toolcheckRoute),
		BuildOverlays: toolcheckOverlays,
	}
}

func markerColor(kind string) string {
	switch kind {
	case "type", "key", "hotkey":
		return "#ffaa00"
	case "drag_start", "drag_end":
		return "#cc44ff"
	case "right_click":
		return "#ff4466"
	}
	return "#00cc66"
}

func toolcheckRoute(text string) Result {
	var res Result
	parsed, ok := ExtractJSON(text)
	if !ok {
		res.Text = "Could not parse. Output only JSON with step, test, do, result, next_test."
		return res
	}

	step := 0
	if n, ok := parsed.Number("step"); ok {
		step = int(n)
	}
	test := parsed.String("test")

	items, _ := parsed.List("do")
	for _, raw := range items {
		var item Object
		if err := item.decode(raw); err != nil {
			continue
		}
		var name string
		if err := jsonString(item["type"], &name); err != nil || name == "" {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))

		bbox := toolcheckBBox
		if b, ok := item.BBox("bbox_2d"); ok {
			bbox = rect(b).Canon()
		}
		res.Actions = append(res.Actions, action.Action{
			Kind:   action.ParseKind(name),
			BBox:   bbox,
			Params: item.String("params"),
		})

		c := bbox.Center()
		res.Overlays = append(res.Overlays, overlay.Overlay{
			Points:        []overlay.Point{{c.X, c.Y}},
			Label:         name,
			LabelPosition: overlay.Point{c.X, c.Y + 12},
			LabelStyle:    overlay.LabelStyle{FontSize: 9, Color: markerColor(name), Align: "center"},
		})
	}

	res.Overlays = append(res.Overlays, overlay.Overlay{
		Points:        []overlay.Point{{500, 15}},
		Label:         fmt.Sprintf("Step %d: %s", step, test),
		LabelPosition: overlay.Point{500, 10},
		LabelStyle:    overlay.LabelStyle{FontSize: 12, BG: "rgba(0,0,0,0.7)", Color: "#ffffff", Align: "center"},
	})

	res.Text = fmt.Sprintf("Step %d tested: %s\n"+
		"Expected result: %s\n"+
		"Next planned test: %s\n"+
		"Look at the screenshot. Did step %d work as expected?\n"+
		"Now perform the next test step. Increment the step number.\n"+
		"Output only JSON.",
		step, test, parsed.String("result"), parsed.String("next_test"), step)
	return res
}

// toolcheckOverlays adds a change indicator in the top-right corner.
func toolcheckOverlays(executed []action.Action, changed bool, overlays []overlay.Overlay) []overlay.Overlay {
	out := append([]overlay.Overlay{}, overlays...)
	if len(executed) == 0 {
		return out
	}
	label, color := "NO CHANGE", "#ffaa00"
	if changed {
		label, color = "SCREEN CHANGED", "#00cc66"
	}
	out = append(out, overlay.Overlay{
		Points:        []overlay.Point{{950, 40}},
		Label:         label,
		LabelPosition: overlay.Point{950, 35},
		LabelStyle:    overlay.LabelStyle{FontSize: 10, BG: "rgba(0,0,0,0.6)", Color: color, Align: "right"},
	})
	return out
}
