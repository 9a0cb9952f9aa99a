// Package main implements the nescore executable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nescore/internal/app"
	"nescore/internal/autotest"
	"nescore/internal/version"
)

type options struct {
	rom       string
	config    string
	nogui     bool
	frames    int
	output    string
	trace     string
	compare   string
	autotest  string
	script    string
	parallel  int
	statsview bool
	dumpstate string
}

func main() {
	var opts options
	flag.StringVar(&opts.rom, "rom", "", "Path to NES ROM file")
	flag.StringVar(&opts.config, "config", "", "Path to configuration file (default "+app.GetDefaultConfigPath()+")")
	flag.BoolVar(&opts.nogui, "nogui", false, "Run without a window and save the final frame")
	flag.IntVar(&opts.frames, "frames", 60, "Frames to run in -nogui mode, and the default for -script")
	flag.StringVar(&opts.output, "output", "", "Final frame path in -nogui mode (.png or .ppm)")
	flag.StringVar(&opts.trace, "trace", "", "Write a nestest-format CPU trace to this file (- for stdout)")
	flag.StringVar(&opts.compare, "compare", "", "Compare the -trace file against this reference log after the run")
	flag.StringVar(&opts.autotest, "autotest", "", "Run the frame-hash cases in this JSON file")
	flag.StringVar(&opts.script, "script", "", "Run a Lua input script as an autotest case")
	flag.IntVar(&opts.parallel, "parallel", 0, "Autotest cases run at once (0 = GOMAXPROCS)")
	flag.BoolVar(&opts.statsview, "statsview", false, "Serve runtime statistics on http://localhost:12600/debug/statsview")
	flag.StringVar(&opts.dumpstate, "dumpstate", "", "Write a Graphviz graph of the machine state after the run")
	help := flag.Bool("help", false, "Show help message")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *help {
		printUsage()
		return
	}
	if *showVersion {
		version.WriteBuildInfo(os.Stdout)
		return
	}

	if opts.autotest != "" || opts.script != "" {
		os.Exit(runAutotest(opts))
	}

	if opts.rom == "" {
		printUsage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		log.Fatalf("[APP] %v", err)
	}
}

// loadConfig reads the config file and applies the command line overrides
func loadConfig(opts options) (*app.Config, error) {
	path := opts.config
	if path == "" {
		path = app.GetDefaultConfigPath()
	}

	config := app.NewConfig()
	if err := config.LoadFromFile(path); err != nil {
		var configErr *app.ConfigError
		if errors.As(err, &configErr) {
			return nil, err
		}
		log.Printf("[APP] Could not load config from %s, using defaults: %v", path, err)
	}

	if opts.nogui {
		config.Video.Backend = "headless"
	}
	if opts.output != "" {
		config.Video.Output = opts.output
	}
	if opts.trace != "" {
		config.Debug.PrintInstruction = true
		config.Debug.TraceFile = opts.trace
		if opts.trace == "-" {
			config.Debug.TraceFile = ""
		}
	}
	if opts.statsview {
		config.Debug.StatsView = true
	}
	return config, nil
}

func run(opts options) error {
	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	application, err := app.NewApplicationWithConfig(config, opts.nogui)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("[APP] Cleanup error: %v", err)
		}
	}()

	if err := application.LoadROM(opts.rom); err != nil {
		return err
	}

	stopOnSignal(application)

	if application.IsHeadless() {
		log.Printf("[APP] Running %d frames headless", opts.frames)
		err = application.RunFrames(opts.frames)
	} else {
		err = application.Run()
	}
	log.Printf("[APP] Stopped after %d frames in %v", application.GetFrameCount(), application.GetUptime())

	if opts.dumpstate != "" {
		if dumpErr := application.DumpState(opts.dumpstate); dumpErr != nil {
			log.Printf("[APP] State dump failed: %v", dumpErr)
		}
	}
	if err != nil {
		return err
	}

	if opts.compare != "" {
		return compareTrace(config.Debug.TraceFile, opts.compare)
	}
	return nil
}

// compareTrace reports the first disagreement between two traces
func compareTrace(minePath, goodPath string) error {
	if minePath == "" {
		return fmt.Errorf("-compare needs -trace to name a file")
	}
	mine, err := os.Open(minePath)
	if err != nil {
		return err
	}
	defer mine.Close()
	good, err := os.Open(goodPath)
	if err != nil {
		return err
	}
	defer good.Close()

	lines, mismatch, err := autotest.CompareTraces(mine, good)
	if err != nil {
		return err
	}
	if mismatch != nil {
		mismatch.WriteTo(os.Stdout)
		return mismatch
	}
	log.Printf("[AUTOTEST] %d trace lines match", lines)
	return nil
}

func runAutotest(opts options) int {
	var cases []autotest.Case
	if opts.autotest != "" {
		loaded, err := autotest.LoadCases(opts.autotest)
		if err != nil {
			log.Printf("[AUTOTEST] %v", err)
			return 2
		}
		cases = append(cases, loaded...)
	}
	if opts.script != "" {
		c, err := autotest.LoadScript(opts.script, autotest.Case{ROM: opts.rom, Frames: opts.frames})
		if err != nil {
			log.Printf("[AUTOTEST] %v", err)
			return 2
		}
		cases = append(cases, c)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &autotest.Runner{Parallel: opts.parallel}
	results, err := runner.Run(ctx, cases)
	if err != nil {
		log.Printf("[AUTOTEST] %v", err)
		return 1
	}

	autotest.WriteReport(os.Stdout, results)
	autotest.LogFailures(results)
	if _, failed := autotest.Summary(results); failed > 0 {
		return 1
	}
	return 0
}

// stopOnSignal ends the run loop on interrupt so cleanup still saves SRAM
func stopOnSignal(application *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Printf("[APP] Interrupt received, shutting down")
		application.Stop()
	}()
}

func printUsage() {
	fmt.Println("nescore - cycle-accurate NES core (6502 CPU, 2C02 PPU, UxROM)")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nescore -rom <file> [options]              # Play in a window")
	fmt.Println("  nescore -nogui -rom <file> -frames N       # Run N frames, save the last one")
	fmt.Println("  nescore -rom nestest.nes -nogui -trace out.log -compare nestest.log")
	fmt.Println("  nescore -autotest cases.json               # Check frame hashes")
	fmt.Println("  nescore -script input.lua -rom <file>      # Scripted input case")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("  Arrow Keys  - D-Pad")
	fmt.Println("  A / B       - A / B Buttons")
	fmt.Println("  N           - Start")
	fmt.Println("  M           - Select")
	fmt.Println("  F1          - Reset")
	fmt.Println("  F2          - Pause")
	fmt.Println("  Escape      - Quit")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Printf("  Config file: %s\n", app.GetDefaultConfigPath())
	fmt.Println("  Battery saves: <sram_dir>/<rom name>.sav")
}
