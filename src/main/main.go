package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"screen-pilot/src/clipboard"
	"screen-pilot/src/config"
	"screen-pilot/src/engine"
	"screen-pilot/src/gui"
	"screen-pilot/src/handoff"
	"screen-pilot/src/hotkey"
	"screen-pilot/src/input"
	"screen-pilot/src/logutil"
	"screen-pilot/src/metrics"
	"screen-pilot/src/runtimeinit"
	"screen-pilot/src/scenario"
	"screen-pilot/src/screenshot"
	"screen-pilot/src/session"
	"screen-pilot/src/singleinstance"
	"screen-pilot/src/tray"
	"screen-pilot/src/worker"
)

type mainOptions struct {
	scenario     string
	region       string
	selectRegion bool
	apiKeyPath   string
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
		args = []string{"screen-pilot"}
	}

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-pilot",
		Short:         "Drive the desktop with a vision-language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPilot(cmd.Context(), *opts)
		},
	}
	addRunFlags(cmd, opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine, the handoff server and the kill-switch hotkey (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPilot(cmd.Context(), *opts)
		},
	}
	addRunFlags(runCmd, opts)

	cmd.AddCommand(runCmd, newSelectRegionCmd(), newScenariosCmd())
	return cmd
}

func addRunFlags(cmd *cobra.Command, opts *mainOptions) {
	cmd.Flags().StringVar(&opts.scenario, "scenario", "", "Scenario to run (default from SCENARIO or "+config.DefaultScenario+")")
	cmd.Flags().StringVar(&opts.region, "region", "", "Capture region x1,y1,x2,y2 in 0..1000 space")
	cmd.Flags().BoolVar(&opts.selectRegion, "select-region", false, "Pick the capture region interactively before starting")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
}

func newSelectRegionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-region",
		Short: "Drag out a region, print it and copy it to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logutil.Setup(false)
			enableDPIAwareness()
			region, ok, err := gui.SelectRegion(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("region selection cancelled")
			}
			fmt.Fprintln(cmd.OutOrStdout(), region)
			if err := clipboard.Write(region.String()); err != nil {
				log.Printf("Clipboard write failed: %v", err)
			}
			return nil
		},
	}
}

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List registered scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scenario.Names() {
				def, err := scenario.Lookup(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, def.Description)
			}
			return nil
		},
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"scenario", "region", "select-region", "api-key-path"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func runPilot(ctx context.Context, opts mainOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DPI awareness must precede any window or metric query.
	enableDPIAwareness()
	logMonitorConfiguration()

	if opts.selectRegion {
		region, ok, err := gui.SelectRegion(ctx)
		if err != nil {
			return fmt.Errorf("region selection: %w", err)
		}
		if !ok {
			return errors.New("region selection cancelled")
		}
		opts.region = region.String()
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			ScenarioOverride:   opts.scenario,
			RegionOverride:     opts.region,
		},
		SetupLogging:      setupLogging,
		ShowBlockingError: true,
	})
	if err != nil {
		return err
	}
	def := rt.Scenario
	region, _ := def.Config.Region()

	state := session.New()
	m := metrics.New()
	pool := worker.New(rt.Config.NativeCallTimeout)
	defer pool.Close()

	eng, err := engine.New(engine.Options{
		Scenario:          def,
		State:             state,
		Capturer:          screenshot.NewUnit(nil),
		Input:             input.New(input.Options{Region: region, Timing: input.DefaultTiming()}),
		Model:             rt.Model,
		Native:            pool,
		Metrics:           m,
		AnnotationTimeout: rt.Config.AnnotationTimeout,
	})
	if err != nil {
		return err
	}
	srv, err := handoff.New(state, handoff.Options{
		Host:    def.Config.ServerHost,
		Port:    def.Config.ServerPort,
		Metrics: m,
	})
	if err != nil {
		return err
	}
	if err := singleinstance.Check(ctx, srv.Addr()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stateURL := "http://" + srv.Addr() + "/state"
	log.Printf("Run %s: scenario %s, handoff at %s, stop with %s", state.RunID(), def.Name, stateURL, rt.Config.KillHotkey)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error {
		err := hotkey.Watch(gctx, rt.Config.KillHotkey, func() {
			log.Printf("Kill switch pressed, stopping")
			cancel()
		})
		if err != nil {
			// The run continues without a kill switch; Ctrl+C still works.
			log.Printf("Kill switch unavailable: %v", err)
		}
		return nil
	})
	if rt.Config.EnableTray {
		g.Go(func() error {
			return tray.Run(gctx, tray.Options{
				State:    state,
				Scenario: def.Name,
				StateURL: stateURL,
				OnQuit:   cancel,
			})
		})
	}

	err = g.Wait()
	log.Printf("Run %s stopped after %d turns", state.RunID(), state.Turn())
	return err
}

func setupLogging(enableFileLogging bool) {
	logutil.Setup(enableFileLogging)
}
