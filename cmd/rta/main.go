// Command rta plays a WAV file through the measurement engine and reports
// the result.
//
// The measured signal is read from one channel and the reference from
// another. The command prints the level table and the estimated delay,
// optionally mirrors live results to websocket clients, and can store the
// final result as a JSON or Parquet snapshot.
//
// Usage:
//
//	rta [flags] -in file.wav
//
// Examples:
//
//	rta -in sweep.wav -speed 0 -out result.json
//	rta -in room.wav -mode FFT16 -window BlackmanHarris -mirror :8080
//	rta -in room.wav -config setup.json -cal mic.txt -parquet room
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-rta/internal/logging"
	"github.com/cwbudde/algo-rta/measure/measurement"
	"github.com/cwbudde/algo-rta/measure/mirror"
	"github.com/cwbudde/algo-rta/measure/snapshot"
)

const mirrorPoll = 100 * time.Millisecond

type options struct {
	in       string
	config   string
	cal      string
	mirror   string
	out      string
	parquet  string
	logLevel string
	speed    float64
	block    int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newFlagSet(cfg *measurement.Config, o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("rta", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.in, "in", "", "WAV `file` to play (required)")
	fs.StringVar(&o.config, "config", "", "JSON measurement config `file`; flags override it")
	fs.StringVar(&o.cal, "cal", "", "calibration `file` (tab or comma separated)")
	fs.StringVar(&o.mirror, "mirror", "", "serve the websocket mirror on `addr`, path /ws")
	fs.StringVar(&o.out, "out", "", "write the final snapshot as JSON to `file`")
	fs.StringVar(&o.parquet, "parquet", "", "write the final snapshot as Parquet files with `prefix`")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.Float64Var(&o.speed, "speed", 1, "playback speed relative to real time, 0 for unpaced")
	fs.IntVar(&o.block, "block", 4096, "frames per delivered block")

	fs.IntVar(&cfg.DataChannel, "data", cfg.DataChannel, "measured channel index")
	fs.IntVar(&cfg.ReferenceChannel, "ref", cfg.ReferenceChannel, "reference channel index")
	fs.IntVar(&cfg.Delay, "delay", cfg.Delay, "compensation delay in samples, positive delays the reference")
	fs.Float64Var(&cfg.GainDB, "gain", cfg.GainDB, "measured channel gain in dB")
	fs.Float64Var(&cfg.OffsetDB, "offset", cfg.OffsetDB, "reference channel gain in dB")
	fs.BoolVar(&cfg.Polarity, "invert", cfg.Polarity, "invert the measured channel")
	fs.TextVar(&cfg.Mode, "mode", cfg.Mode, "analyzer mode (FFT10..FFT16, LFT)")
	fs.TextVar(&cfg.Window, "window", cfg.Window, "analysis window")
	fs.TextVar(&cfg.Average, "average", cfg.Average, "averaging (Off, LPF, FIFO)")
	fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "FIFO averaging depth")
	fs.Float64Var(&cfg.Cutoff, "cutoff", cfg.Cutoff, "LPF averaging cutoff in Hz (0.25, 0.5, 1)")
	fs.TextVar(&cfg.InputFilter, "filter", cfg.InputFilter, "input filter (None, A, C, Notch1k, BandPass100, LowPass200)")

	return fs
}

// parseArgs applies the config file first and the flags on top of it.
func parseArgs(args []string, stderr io.Writer) (measurement.Config, options, error) {
	cfg := measurement.DefaultConfig()

	var o options
	if err := newFlagSet(&cfg, &o, stderr).Parse(args); err != nil {
		return cfg, o, err
	}

	if o.config != "" {
		b, err := os.ReadFile(o.config)
		if err != nil {
			return cfg, o, err
		}

		cfg = measurement.DefaultConfig()
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, o, fmt.Errorf("%s: %w", o.config, err)
		}

		if err := newFlagSet(&cfg, &o, io.Discard).Parse(args); err != nil {
			return cfg, o, err
		}
	}

	switch {
	case o.in == "":
		return cfg, o, errors.New("-in is required")
	case o.speed < 0:
		return cfg, o, errors.New("-speed must not be negative")
	case o.block <= 0:
		return cfg, o, errors.New("-block must be positive")
	}

	return cfg, o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, o, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	log, err := logging.New(o.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	in := newWAVInput(o.in, o.block, o.speed)

	// Unpaced playback outruns the ticker, so every block is analyzed
	// before the next one is delivered.
	if o.speed == 0 {
		cfg.TickInterval = 0
	}

	c, err := measurement.New(
		measurement.WithInput(in),
		measurement.WithConfig(cfg),
		measurement.WithLogger(log))
	if err != nil {
		return err
	}

	if o.speed == 0 {
		in.afterBlock = func() {
			if err := c.Transform(); err != nil {
				log.Warn("transform failed", zap.Error(err))
			}
		}
	}

	if o.cal != "" {
		if err := c.LoadCalibration(o.cal); err != nil {
			return err
		}
	}

	if o.mirror != "" {
		shutdown := serveMirror(ctx, o.mirror, c, log)
		defer shutdown()
	}

	if err := c.SetActive(true); err != nil {
		return err
	}

	playErr := in.Play(ctx)

	if err := c.Transform(); err != nil {
		log.Warn("final transform failed", zap.Error(err))
	}

	fmt.Fprintf(stdout, "%s: %d frames at %g Hz, %d channels\n",
		o.in, in.frames, in.format.SampleRate, in.format.Channels)
	fmt.Fprintf(stdout, "Estimated delay: %d samples\n\n", c.EstimatedDelay())

	if err := printLevels(stdout, c); err != nil {
		return err
	}

	snap := snapshot.Capture(c)

	if err := c.SetActive(false); err != nil {
		return err
	}

	if playErr != nil && !errors.Is(playErr, context.Canceled) {
		return playErr
	}

	if o.out != "" {
		if err := writeJSON(o.out, snap); err != nil {
			return err
		}
	}

	if o.parquet != "" {
		if err := writeParquet(o.parquet, snap); err != nil {
			return err
		}
	}

	return nil
}

// serveMirror starts the websocket mirror and returns a function that
// stops it.
func serveMirror(ctx context.Context, addr string, c *measurement.Controller, log *zap.Logger) func() {
	hub := mirror.NewHub(log)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("mirror server failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)

	go func() { _ = hub.Run(ctx, c, mirrorPoll) }()

	log.Info("mirror listening", zap.String("addr", addr))

	return func() {
		cancel()
		hub.Close()

		sctx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()

		_ = srv.Shutdown(sctx)
	}
}
