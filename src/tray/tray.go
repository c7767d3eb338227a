// Package tray shows a notification-area icon whose tooltip follows the
// engine's phase and turn, with menu entries to copy the state URL and to
// quit.
package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"screen-pilot/src/frame"
	"screen-pilot/src/session"
)

// Options configures the tray icon.
type Options struct {
	State    *session.State
	Scenario string
	// StateURL is copied to the clipboard from the menu.
	StateURL string
	// OnQuit is called when the user picks Quit.
	OnQuit func()
}

// maxTooltip is the Windows notification-area tooltip limit, less the
// terminator.
const maxTooltip = 127

// Tooltip renders the tooltip for a snapshot.
func Tooltip(scenario string, snap session.Snapshot) string {
	text := fmt.Sprintf("screen-pilot [%s] turn %d: %s", scenario, snap.Turn, snap.Phase)
	if snap.Phase == session.PhaseError && snap.Error != "" {
		text += " (" + snap.Error + ")"
	}
	if r := []rune(text); len(r) > maxTooltip {
		text = string(r[:maxTooltip-3]) + "..."
	}
	return text
}

const iconSize = 16

// Icon returns a 16x16 crosshair as an .ico file holding one PNG image.
func Icon() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	bg := color.RGBA{0x20, 0x20, 0x20, 0xff}
	fg := color.RGBA{0x00, 0xff, 0x00, 0xff}
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			c := bg
			if x == iconSize/2 || y == iconSize/2 || x == 0 || y == 0 || x == iconSize-1 || y == iconSize-1 {
				c = fg
			}
			img.SetRGBA(x, y, c)
		}
	}
	png, err := frame.EncodeImage(img)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(png)), 6 + 16})
	buf.Write(png)
	return buf.Bytes(), nil
}
