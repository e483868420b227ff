package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	han "github.com/jamesainslie/go-han"
)

func main() {
	configPath := flag.String("config", "", "Path to experiment YAML config (required)")
	testFile := flag.String("testfile", "", "Run the test phase on this JSON Lines file, bypassing the configured paths")
	outputFile := flag.String("outputfile", "predictions.json", "Prediction output path, used with -testfile")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: han-run -config CONFIG [-testfile FILE [-outputfile FILE]]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := han.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logOut := io.Writer(os.Stderr)
	if *testFile != "" {
		cfg.ApplyTestFileOverride(*testFile, *outputFile)
	} else if cfg.SaveDir != "" {
		if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating save dir: %v\n", err)
			os.Exit(1)
		}
		logFile, err := os.OpenFile(filepath.Join(cfg.SaveDir, "log"),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stderr, logFile)
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	exp, err := han.New(cfg, han.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := exp.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
