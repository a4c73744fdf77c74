package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/claim-assistant/internal/bootstrap"
	"github.com/kirillkom/claim-assistant/internal/config"
	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/claim-assistant/internal/observability/logging"
)

const serviceName = "claimctl"

const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitTemporary    = 3
)

var (
	cfg        config.Config
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:           "claimctl",
	Short:         "Run the claim pipeline on local PDF files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(logging.NewLoggerTo(os.Stderr, serviceName, cfg.LogLevel, cfg.LogFormat))
	},
}

func init() {
	cfg = config.Load()
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text")
	f.StringVarP(&outputPath, "out", "o", "", "Write the JSON result to this file instead of stdout")
	f.IntVar(&cfg.ExtractConcurrency, "concurrency", cfg.ExtractConcurrency, "Maximum concurrent extraction calls")
	f.StringVar(&cfg.ExtractFailurePolicy, "on-extract-error", cfg.ExtractFailurePolicy, "Extraction failure policy: fail or skip")
}

// pipeline builds the claim processor; replaced in tests.
var pipeline = func(ctx context.Context) (ports.ClaimProcessor, func(), error) {
	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return app.Claims, app.Close, nil
}

// runWithFiles loads paths, runs fn and writes its JSON result.
func runWithFiles(cmd *cobra.Command, paths []string, fn func(context.Context, ports.ClaimProcessor, []domain.UploadedFile) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := localfs.New("", cfg.MaxUploadBytes()).Load(ctx, paths)
	if err != nil {
		return err
	}

	claims, closeFn, err := pipeline(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer closeFn()

	result, err := fn(ctx, claims, files)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), result)
}

func writeResult(stdout io.Writer, result any) error {
	if outputPath != "" {
		return localfs.New("", 0).SaveJSON(context.Background(), outputPath, result)
	}
	return writeIndentedJSON(stdout, result)
}

func exitCode(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrNoFiles):
		return exitInvalidInput
	case domain.IsKind(err, domain.ErrUpstream):
		return exitFailure
	case domain.IsKind(err, domain.ErrTemporary):
		return exitTemporary
	default:
		return exitFailure
	}
}
