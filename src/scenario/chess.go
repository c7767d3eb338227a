package scenario

import (
	"fmt"

	"screen-pilot/src/action"
	"screen-pilot/src/overlay"
)

const chessPrompt = `You are a chess assistant. You see a chess.com board screenshot.
You play as White. Coordinates are 0-1000 normalized.
Top-left of the captured board region is 0,0.
Bottom-right is 1000,1000.

Respond with ONLY a JSON object:
{
  "best_move": {"from": [x1,y1,x2,y2], "to": [x1,y1,x2,y2], "label": "e2e4"},
  "alternatives": [
    {"from": [x1,y1,x2,y2], "to": [x1,y1,x2,y2], "label": "d2d4"},
    {"from": [x1,y1,x2,y2], "to": [x1,y1,x2,y2], "label": "Nf3"},
    {"from": [x1,y1,x2,y2], "to": [x1,y1,x2,y2], "label": "c2c4"}
  ],
  "analysis": "Brief explanation of position and chosen move."
}

bbox [x1,y1,x2,y2] marks a square on the board.
Use small boxes around the center of each square, about 40x40 in norm coords.
The board has 8 ranks and 8 files. White pieces start at the bottom.
Estimate square centers by dividing the 0-1000 range into 8 columns and 8 rows.
Column a center ~ 62, b ~ 187, c ~ 312, d ~ 437, e ~ 562, f ~ 687, g ~ 812, h ~ 937
Row 1 (White back) center ~ 937, row 2 ~ 812, ... row 8 (Black back) ~ 62
Output ONLY the JSON object. No other text.`

const chessSeed = `{"best_move":{"from":[542,792,582,832],"to":[542,667,582,707],"label":"e2e4"},` +
	`"alternatives":[` +
	`{"from":[417,792,457,832],"to":[417,667,457,707],"label":"d2d4"},` +
	`{"from":[792,792,832,832],"to":[667,667,707,707],"label":"Nf3"},` +
	`{"from":[292,792,332,832],"to":[292,667,332,707],"label":"c2c4"}],` +
	`"analysis":"Opening position. e2e4 controls the center and opens lines for bishop and queen."}`

const maxAlternatives = 3

var alternativeArrow = overlay.ArrowShape{ShaftHalfWidth: 6, HeadLength: 20, HeadHalfWidth: 14}

func init() {
	Register(Chess())
}

// Chess plays White on a chess.com board: two clicks per move, an orange
// arrow for the move played and blue arrows for the alternatives.
func Chess() Definition {
	cfg := DefaultConfig()
	cfg.VLMTemperature = 0.3
	cfg.VLMTopP = 0.9
	cfg.VLMMaxTokens = 600
	cfg.CaptureRegion = "150,100,850,950"
	cfg.CaptureDelaySeconds = 3
	cfg.SystemPrompt = chessPrompt
	cfg.SeedVLMText = chessSeed
	cfg.ChangeThreshold = 0.01
	return Definition{
		Name:          "chess",
		Description:   "plays White on a chess.com board",
		Config:        cfg,
		Route:         chessRoute,
		RunCycle:      StandardCycle(chessRoute),
		BuildOverlays: chessOverlays,
	}
}

func chessRoute(text string) Result {
	var res Result
	parsed, ok := ExtractJSON(text)
	if !ok {
		res.Text = "Could not parse your response. Output ONLY a JSON object."
		return res
	}

	var moveLabel string
	if best, ok := parsed.Object("best_move"); ok {
		moveLabel = best.String("label")
		from, hasFrom := best.BBox("from")
		to, hasTo := best.BBox("to")
		if hasFrom {
			res.Actions = append(res.Actions, action.New(action.Click, rect(from)))
		}
		if hasTo {
			res.Actions = append(res.Actions, action.New(action.Click, rect(to)))
		}
		if hasFrom && hasTo {
			fx, fy := center(from)
			tx, ty := center(to)
			arrow := overlay.Arrow(fx, fy, tx, ty, overlay.DefaultArrow, "#ff6600", "rgba(255,120,0,0.35)")
			arrow.Label = moveLabel
			arrow.LabelPosition = overlay.Point{tx, ty - 25}
			arrow.LabelStyle = overlay.LabelStyle{FontSize: 12, BG: "#cc5500", Color: "#ffffff", Align: "center"}
			res.Overlays = append(res.Overlays, arrow)
		}
	}

	if alts, ok := parsed.List("alternatives"); ok {
		drawn := 0
		for _, raw := range alts {
			if drawn >= maxAlternatives {
				break
			}
			var alt Object
			if err := alt.decode(raw); err != nil {
				continue
			}
			from, hasFrom := alt.BBox("from")
			to, hasTo := alt.BBox("to")
			if !hasFrom || !hasTo {
				continue
			}
			fx, fy := center(from)
			tx, ty := center(to)
			arrow := overlay.Arrow(fx, fy, tx, ty, alternativeArrow, "#4488ff", "rgba(68,136,255,0.2)")
			arrow.Label = alt.String("label")
			arrow.LabelPosition = overlay.Point{tx, ty - 20}
			arrow.LabelStyle = overlay.LabelStyle{FontSize: 10, BG: "#224488", Color: "#aaccff", Align: "center"}
			res.Overlays = append(res.Overlays, arrow)
			drawn++
		}
	}

	res.Text = fmt.Sprintf("Your last move was: %s\n"+
		"Your analysis: %s\n"+
		"The orange arrow on the screenshot shows your last move.\n"+
		"Blue arrows show the alternatives you considered.\n"+
		"Now look at the new board after both moves.\n"+
		"Propose your next move as White. Output only JSON.",
		moveLabel, parsed.String("analysis"))
	return res
}

// chessOverlays warns when the board did not move after a move was played.
func chessOverlays(executed []action.Action, changed bool, overlays []overlay.Overlay) []overlay.Overlay {
	out := append([]overlay.Overlay{}, overlays...)
	if !changed && len(executed) > 0 {
		out = append(out, overlay.Label(500, 40, "MOVE MAY HAVE FAILED - SCREEN UNCHANGED",
			overlay.LabelStyle{FontSize: 13, BG: "#cc0000", Color: "#ffffff", Align: "center"}))
	}
	return out
}
