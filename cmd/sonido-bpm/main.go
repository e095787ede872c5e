// Command sonido-bpm prints the estimated tempo of audio files.
//
// Usage:
//
//	sonido-bpm [flags] file ...
//
// WAV files are decoded natively; other formats need ffmpeg and ffprobe.
// A tempo of "-" means no reliable tempo was found.
//
// Examples:
//
//	sonido-bpm track.wav
//	sonido-bpm -json -jobs 4 *.mp3
//	sonido-bpm -config tempo.json -env .env album/*.flac
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-tempo/logging"
	"github.com/RyanBlaney/sonido-tempo/tempo"
	"github.com/RyanBlaney/sonido-tempo/tempo/config"
	"github.com/RyanBlaney/sonido-tempo/transcode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath string
	envFiles   []string
	json       bool
	jobs       int
	verbose    bool
	timeout    time.Duration
	files      []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("sonido-bpm", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	var envList string
	fs.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&envList, "env", "", "comma-separated dotenv files with SONIDO_* overrides")
	fs.BoolVar(&opts.json, "json", false, "print one JSON object per file")
	fs.IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "files analyzed in parallel")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.DurationVar(&opts.timeout, "timeout", 0, "overall time limit (0 for none)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: sonido-bpm [flags] file ...\n\n")
		fmt.Fprintf(stderr, "Estimates the tempo of each file in beats per minute.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		for _, name := range []string{
			config.EnvFFmpegPath, config.EnvFFprobePath, config.EnvDecodeTimeout,
			config.EnvChannelMode, config.EnvSampleRate, config.EnvMaxDuration,
			config.EnvRemoveDC, config.EnvLowpassCutoff, config.EnvLoudSegmentGate,
			config.EnvLogLevel,
		} {
			fmt.Fprintf(stderr, "  %s\n", name)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, f := range strings.Split(envList, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.envFiles = append(opts.envFiles, f)
		}
	}
	if opts.jobs < 1 {
		opts.jobs = 1
	}
	opts.files = fs.Args()
	if len(opts.files) == 0 {
		fs.Usage()
		return nil, fmt.Errorf("no input files")
	}
	return opts, nil
}

func loadConfig(opts *options) (*config.TempoConfig, error) {
	cfg := config.DefaultTempoConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg, opts.envFiles...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	logger := logging.NewWriterLogger(stderr, logging.ParseLevel(cfg.LogLevel))
	if opts.verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	prev := logging.GetGlobalLogger()
	logging.SetGlobalLogger(logger)
	defer logging.SetGlobalLogger(prev)

	analyzer, err := tempo.NewAnalyzer(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	reports := make([]report, len(opts.files))
	err = transcode.WithSession(ctx, transcode.NewDecoder(cfg.Decoder), func(s *transcode.Session) error {
		var g errgroup.Group
		g.SetLimit(opts.jobs)

		for i, path := range opts.files {
			g.Go(func() error {
				fileCtx := logging.ContextWithFields(ctx, logging.Fields{"job": i})
				result, err := analyzer.AnalyzeFile(fileCtx, s, path)
				reports[i] = report{Path: path, Result: result, Err: err}
				if err != nil {
					logging.Warn("Analysis failed", logging.Fields{"file": path, "error": err.Error()})
				}
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if err := writeReports(stdout, reports, opts.json); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	for _, r := range reports {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}
