package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
)

var processCmd = &cobra.Command{
	Use:   "process [file.pdf...]",
	Short: "Classify, extract and decide a claim",
	Long:  `Uploads the files, classifies them, extracts bill and discharge summary fields and prints the decision JSON.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

var processVerbose bool

func init() {
	processCmd.Flags().BoolVar(&processVerbose, "verbose", false, "Include claim id, classifications and skipped extractions")
	rootCmd.AddCommand(processCmd)
}

type verboseResult struct {
	ClaimID         string                        `json:"claim_id"`
	Classifications []domain.ClassificationRecord `json:"classifications"`
	Failures        []domain.ExtractionFailure    `json:"failures,omitempty"`
	domain.DecisionEnvelope
}

func runProcess(cmd *cobra.Command, args []string) error {
	return runWithFiles(cmd, args, func(ctx context.Context, claims ports.ClaimProcessor, files []domain.UploadedFile) (any, error) {
		result, err := claims.ProcessClaim(ctx, files)
		if err != nil {
			return nil, err
		}
		if !processVerbose {
			return result.Envelope, nil
		}
		return verboseResult{
			ClaimID:          result.ClaimID,
			Classifications:  result.Classifications,
			Failures:         result.Failures,
			DecisionEnvelope: result.Envelope,
		}, nil
	})
}
