package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-pilot/src/coords"
	"screen-pilot/src/engine"
	"screen-pilot/src/frame"
	"screen-pilot/src/input"
	"screen-pilot/src/screenshot"
	"screen-pilot/src/worker"
)

const (
	maxFileSizeMB = 64
	maxFileSize   = maxFileSizeMB * 1024 * 1024

	nativeTimeout = 30 * time.Second
)

type cliOptions struct {
	jsonOutput bool
	verbose    bool

	// Test seams; nil selects the real display and input device.
	capturer engine.Capturer
	newInput func(region coords.Rect) engine.Actuator
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"pilot-native"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pilot-native",
		Short:         "Call native capture and input operations by hand",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Configure logging BEFORE any other operations.
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")

	cmd.AddCommand(
		newCaptureCmd(opts),
		newDiffCmd(opts),
		newCursorCmd(opts),
		newClickCmd(opts),
		newTypeCmd(opts),
		newKeyCmd(opts),
		newHotkeyCmd(opts),
		newScrollCmd(opts),
		newDragCmd(opts),
	)
	return cmd
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") || len(arg) <= 2 {
			continue
		}
		name := strings.SplitN(arg[1:], "=", 2)[0]
		if legacyFlags[name] {
			normalized[i] = "-" + arg
		}
	}

	return normalized
}

var legacyFlags = map[string]bool{
	"json": true, "verbose": true, "region": true, "width": true, "height": true,
	"out": true, "bbox": true, "double": true, "right": true, "text": true,
	"name": true, "keys": true, "clicks": true, "down": true, "from": true, "to": true,
}

// native runs fn on a locked worker thread with a timeout, like the engine
// does.
func native(ctx context.Context, name string, fn func() error) error {
	pool := worker.New(nativeTimeout)
	defer pool.Close()
	return pool.Do(ctx, name, fn)
}

func (o *cliOptions) input(region string) (engine.Actuator, error) {
	r, err := coords.ParseRect(region)
	if err != nil {
		return nil, err
	}
	if o.newInput != nil {
		return o.newInput(r), nil
	}
	return input.New(input.Options{Region: r, Timing: input.DefaultTiming()}), nil
}

func parseBBox(s string) (coords.Rect, error) {
	if strings.TrimSpace(s) == "" {
		return coords.Rect{}, errors.New("--bbox is required")
	}
	r, err := coords.ParseRect(s)
	if err != nil {
		return coords.Rect{}, err
	}
	return r.Canon(), nil
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < 8 || !bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

func readPNG(path string) (frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if err := validatePNG(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame.Frame(data), nil
}

func (o *cliOptions) print(w io.Writer, plain string, result any) error {
	if !o.jsonOutput {
		_, err := fmt.Fprintln(w, plain)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// CaptureResult describes a written frame.
type CaptureResult struct {
	Path     string  `json:"path"`
	Bytes    int     `json:"bytes"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration_seconds"`
}

func newCaptureCmd(opts *cliOptions) *cobra.Command {
	var region, out string
	var width, height int
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a region as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := coords.ParseRect(region)
			if err != nil {
				return err
			}
			capturer := opts.capturer
			if capturer == nil {
				capturer = screenshot.NewUnit(nil)
			}

			start := time.Now()
			var f frame.Frame
			if err := native(cmd.Context(), "capture", func() error {
				f = capturer.Capture(r, width, height)
				return nil
			}); err != nil {
				return err
			}
			if f.Empty() {
				return errors.New("capture failed")
			}
			elapsed := time.Since(start)
			log.Printf("CAPTURE: %d bytes in %v", len(f), elapsed)

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(f)
				return err
			}
			if err := os.WriteFile(out, f, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			img, err := frame.Decode(f)
			if err != nil {
				return err
			}
			b := img.Bounds()
			return opts.print(cmd.OutOrStdout(), out, CaptureResult{
				Path: out, Bytes: len(f), Width: b.Dx(), Height: b.Dy(), Duration: elapsed.Seconds(),
			})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Region x1,y1,x2,y2 (empty for the whole display)")
	cmd.Flags().IntVar(&width, "width", 0, "Resample width (0 keeps the cropped size)")
	cmd.Flags().IntVar(&height, "height", 0, "Resample height (0 keeps the cropped size)")
	cmd.Flags().StringVar(&out, "out", "capture.png", "Output file (use '-' for stdout)")
	return cmd
}

// DiffResult is the change ratio between two frames.
type DiffResult struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Ratio float64 `json:"ratio"`
}

func newDiffCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff A.png B.png",
		Short: "Print the sampled change ratio between two PNG files (-1 when incomparable)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := readPNG(args[0])
			if err != nil {
				return err
			}
			b, err := readPNG(args[1])
			if err != nil {
				return err
			}
			ratio := frame.Diff(a, b)
			return opts.print(cmd.OutOrStdout(), fmt.Sprintf("%.6f", ratio), DiffResult{A: args[0], B: args[1], Ratio: ratio})
		},
	}
}

func newCursorCmd(opts *cliOptions) *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Print the cursor position in normalized region space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input(region)
			if err != nil {
				return err
			}
			var p coords.Point
			if err := native(cmd.Context(), "cursor", func() error {
				p = in.CursorPosition()
				return nil
			}); err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), fmt.Sprintf("%d,%d", p.X, p.Y), p)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Region x1,y1,x2,y2 (empty for the whole display)")
	return cmd
}

// inputCmd builds a subcommand that performs one input operation.
func inputCmd(opts *cliOptions, use, short string, setup func(*cobra.Command), do func(engine.Actuator) error) *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := opts.input(region)
			if err != nil {
				return err
			}
			return native(cmd.Context(), use, func() error { return do(in) })
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Region the coordinates refer to")
	setup(cmd)
	return cmd
}

func newClickCmd(opts *cliOptions) *cobra.Command {
	var bbox string
	var double, right bool
	return inputCmd(opts, "click", "Click the center of a normalized bbox",
		func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&bbox, "bbox", "", "Target x1,y1,x2,y2")
			cmd.Flags().BoolVar(&double, "double", false, "Double click")
			cmd.Flags().BoolVar(&right, "right", false, "Right click")
		},
		func(in engine.Actuator) error {
			r, err := parseBBox(bbox)
			if err != nil {
				return err
			}
			switch {
			case double && right:
				return errors.New("--double and --right are exclusive")
			case double:
				in.DoubleClick(r)
			case right:
				in.RightClick(r)
			default:
				in.Click(r)
			}
			return nil
		})
}

func newTypeCmd(opts *cliOptions) *cobra.Command {
	var text string
	return inputCmd(opts, "type", "Type text at the focused window",
		func(cmd *cobra.Command) { cmd.Flags().StringVar(&text, "text", "", "Text to type") },
		func(in engine.Actuator) error {
			in.TypeText(text)
			return nil
		})
}

func newKeyCmd(opts *cliOptions) *cobra.Command {
	var name string
	return inputCmd(opts, "key", "Press and release one named key",
		func(cmd *cobra.Command) { cmd.Flags().StringVar(&name, "name", "", "Key name, e.g. enter, f5, a") },
		func(in engine.Actuator) error {
			if _, ok := input.LookupKey(name); !ok {
				return fmt.Errorf("unknown key %q", name)
			}
			in.PressKey(name)
			return nil
		})
}

func newHotkeyCmd(opts *cliOptions) *cobra.Command {
	var keys string
	return inputCmd(opts, "hotkey", "Press a key combination such as ctrl+shift+t",
		func(cmd *cobra.Command) { cmd.Flags().StringVar(&keys, "keys", "", "Combination joined with +") },
		func(in engine.Actuator) error {
			if strings.TrimSpace(keys) == "" {
				return errors.New("--keys is required")
			}
			in.Hotkey(keys)
			return nil
		})
}

func newScrollCmd(opts *cliOptions) *cobra.Command {
	var bbox string
	var clicks int
	var down bool
	return inputCmd(opts, "scroll", "Scroll the wheel over a normalized bbox",
		func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&bbox, "bbox", "", "Target x1,y1,x2,y2")
			cmd.Flags().IntVar(&clicks, "clicks", input.DefaultScrollClicks, "Wheel clicks")
			cmd.Flags().BoolVar(&down, "down", false, "Scroll down instead of up")
		},
		func(in engine.Actuator) error {
			r, err := parseBBox(bbox)
			if err != nil {
				return err
			}
			if down {
				in.ScrollDown(r, clicks)
			} else {
				in.ScrollUp(r, clicks)
			}
			return nil
		})
}

func newDragCmd(opts *cliOptions) *cobra.Command {
	var from, to string
	return inputCmd(opts, "drag", "Drag from one normalized bbox to another",
		func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&from, "from", "", "Start x1,y1,x2,y2")
			cmd.Flags().StringVar(&to, "to", "", "End x1,y1,x2,y2")
		},
		func(in engine.Actuator) error {
			a, err := parseBBox(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			b, err := parseBBox(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			in.Drag(a, b)
			return nil
		})
}
