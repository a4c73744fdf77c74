package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
)

const pathsArg = "paths"

type fileLoader interface {
	Load(ctx context.Context, paths []string) ([]domain.UploadedFile, error)
}

func processClaimTool() mcp.Tool {
	return mcp.NewTool("process_claim",
		mcp.WithDescription("Classify, extract and decide an insurance claim from local PDF files. Returns the decision JSON."),
		mcp.WithArray(pathsArg,
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Paths of the claim PDFs (bills, discharge summaries)"),
		),
	)
}

func classifyDocumentsTool() mcp.Tool {
	return mcp.NewTool("classify_documents",
		mcp.WithDescription("Classify local PDF files as bill, discharge_summary or other without deciding the claim."),
		mcp.WithArray(pathsArg,
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Paths of the PDFs to classify"),
		),
	)
}

func handleProcessClaim(claims ports.ClaimProcessor, files fileLoader) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uploads, result := loadArgs(ctx, request, files)
		if result != nil {
			return result, nil
		}
		claim, err := claims.ProcessClaim(ctx, uploads)
		if err != nil {
			slog.Error("mcp_process_claim_failed", "files", len(uploads), "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s", domain.ClientDetail(err))), nil
		}
		return jsonResult(claim.Envelope)
	}
}

func handleClassifyDocuments(claims ports.ClaimProcessor, files fileLoader) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		uploads, result := loadArgs(ctx, request, files)
		if result != nil {
			return result, nil
		}
		records, err := claims.ClassifyDocuments(ctx, uploads)
		if err != nil {
			slog.Error("mcp_classify_failed", "files", len(uploads), "error", err)
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s", domain.ClientDetail(err))), nil
		}
		return jsonResult(records)
	}
}

func loadArgs(ctx context.Context, request mcp.CallToolRequest, files fileLoader) ([]domain.UploadedFile, *mcp.CallToolResult) {
	paths := request.GetStringSlice(pathsArg, nil)
	if len(paths) == 0 {
		return nil, mcp.NewToolResultError("Error: paths parameter is required")
	}
	uploads, err := files.Load(ctx, paths)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Error: %v", err))
	}
	return uploads, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}
