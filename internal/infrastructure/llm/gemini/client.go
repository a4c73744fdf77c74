package gemini

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/infrastructure/resilience"
)

// ClientConfig holds connection settings for the Gemini API.
type ClientConfig struct {
	APIKey string
	// BaseURL overrides the API endpoint; tests point it at httptest servers.
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the genai SDK: file uploads, deletions and generation calls.
type Client struct {
	sdk      *genai.Client
	executor *resilience.Executor
	observer Observer
}

func New(ctx context.Context, cfg ClientConfig, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	sdkCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		sdkCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	sdk, err := genai.NewClient(ctx, sdkCfg)
	if err != nil {
		return nil, fmt.Errorf("init genai client: %w", err)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{sdk: sdk, executor: executor}, nil
}

// WithObserver attaches call and token telemetry.
func (c *Client) WithObserver(observer Observer) *Client {
	c.observer = observer
	return c
}

func (c *Client) UploadFile(ctx context.Context, file domain.UploadedFile, mimeType string) (domain.RemoteFile, error) {
	var uploaded *genai.File
	err := c.executor.Execute(ctx, "gemini.upload", func(callCtx context.Context) error {
		var callErr error
		uploaded, callErr = c.sdk.Files.Upload(callCtx, bytes.NewReader(file.Data), &genai.UploadFileConfig{
			MIMEType:    mimeType,
			DisplayName: displayName(file.Filename),
		})
		return callErr
	}, classifyGeminiError)
	if err != nil {
		return domain.RemoteFile{}, wrapTemporaryIfNeeded("gemini upload "+file.Filename, err)
	}
	if uploaded == nil {
		return domain.RemoteFile{}, fmt.Errorf("gemini upload %s: empty file handle", file.Filename)
	}

	remoteMIME := uploaded.MIMEType
	if remoteMIME == "" {
		remoteMIME = mimeType
	}
	return domain.RemoteFile{
		Filename: file.Filename,
		Name:     uploaded.Name,
		URI:      uploaded.URI,
		MIMEType: remoteMIME,
	}, nil
}

func (c *Client) DeleteFile(ctx context.Context, file domain.RemoteFile) error {
	if file.Name == "" {
		return nil
	}
	err := c.executor.Execute(ctx, "gemini.delete", func(callCtx context.Context) error {
		_, callErr := c.sdk.Files.Delete(callCtx, file.Name, nil)
		return callErr
	}, classifyGeminiError)
	if err != nil {
		return wrapTemporaryIfNeeded("gemini delete "+file.Name, err)
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Files)+1)
	for _, file := range req.Files {
		parts = append(parts, genai.NewPartFromURI(file.URI, file.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var genCfg *genai.GenerateContentConfig
	if req.JSON {
		genCfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	operation := "gemini.generate." + req.Step
	var resp *genai.GenerateContentResponse
	started := time.Now()
	err := c.executor.Execute(ctx, operation, func(callCtx context.Context) error {
		var callErr error
		resp, callErr = c.sdk.Models.GenerateContent(callCtx, req.Model, contents, genCfg)
		return callErr
	}, classifyGeminiError)
	if c.observer != nil {
		c.observer.ObserveLLMCall(req.Step, req.Model, time.Since(started), err)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	if resp == nil {
		return "", nil
	}
	if c.observer != nil && resp.UsageMetadata != nil {
		c.observer.ObserveTokenUsage(req.Step, req.Model,
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
		)
	}
	return resp.Text(), nil
}

func displayName(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document"
	}
	return base
}
