package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file.pdf...]",
	Short: "Classify documents without deciding the claim",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	return runWithFiles(cmd, args, func(ctx context.Context, claims ports.ClaimProcessor, files []domain.UploadedFile) (any, error) {
		return claims.ClassifyDocuments(ctx, files)
	})
}
