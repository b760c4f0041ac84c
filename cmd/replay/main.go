package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/coinsum/internal/replay"
	"github.com/okian/coinsum/pkg/logger"
)

// Default configuration constants.
const (
	defaultStream   = "replay"
	defaultConf     = 0.5
	defaultIoU      = 0.4
	defaultCurrency = "yen"
	defaultTimeout  = 10 * time.Second
)

func main() {
	var (
		recording = flag.String("recording", "", "JSON recording of detector output")
		baseURL   = flag.String("url", "", "Base URL of a running service; empty replays in process")
		stream    = flag.String("stream", defaultStream, "Stream id, or id prefix with -streams")
		streams   = flag.Int("streams", 1, "Concurrent copies of the recording sent to the service")
		device    = flag.String("device", "cpu", "cpu or gpu, in process only")
		conf      = flag.Float64("conf", defaultConf, "Confidence threshold")
		iou       = flag.Float64("iou", defaultIoU, "IoU threshold")
		currency  = flag.String("currency", defaultCurrency, "Suffix for rendered totals")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *recording == "" {
		replay.ShowHelp(os.Stdout)
		return
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	// Logs go to stderr so stdout carries only per-frame lines.
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cfg := &replay.Config{
		Recording:           *recording,
		BaseURL:             *baseURL,
		Stream:              *stream,
		Streams:             *streams,
		Timeout:             *timeout,
		Device:              *device,
		Currency:            *currency,
		Verbose:             *verbose,
		ConfidenceThreshold: *conf,
		IoUThreshold:        *iou,
	}

	_, err := replay.Run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		os.Stderr.WriteString("Replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
