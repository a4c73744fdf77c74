package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/kirillkom/claim-assistant/internal/adapters/http/openapi"
	"github.com/kirillkom/claim-assistant/internal/config"
	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
	"github.com/kirillkom/claim-assistant/internal/observability/metrics"
)

const (
	filesField          = "files"
	multipartMemory     = 32 << 20
	backpressureMaxWait = 250 * time.Millisecond
)

//go:embed web/upload.html
var uploadForm []byte

type Router struct {
	cfg     config.Config
	claims  ports.ClaimProcessor
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, claims ports.ClaimProcessor) *Router {
	return &Router{cfg: cfg, claims: claims}
}

func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	mux.HandleFunc("GET /{$}", rt.form)
	mux.HandleFunc("GET /process-claim", rt.form)
	mux.Handle("POST /process-claim", rt.trafficControl(http.HandlerFunc(rt.processClaim)))

	if specHandler, err := openapi.Handler(); err != nil {
		slog.Error("openapi_document_unavailable", "error", err)
	} else {
		mux.Handle("GET /openapi.json", specHandler)
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

// trafficControl applies rate limiting and the in-flight cap to pipeline routes.
func (rt *Router) trafficControl(next http.Handler) http.Handler {
	onReject := func(reason string) {
		if rt.metrics != nil {
			rt.metrics.RecordRejected(reason)
		}
	}
	handler := next
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureMaxWait, onReject)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	}
	return handler
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "API is running"})
}

func (rt *Router) form(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(uploadForm)
}

func (rt *Router) processClaim(w http.ResponseWriter, r *http.Request) {
	if maxBytes := rt.cfg.MaxUploadBytes(); maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	files, err := readUploadedFiles(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := rt.claims.ProcessClaim(r.Context(), files)
	if err != nil {
		slog.ErrorContext(r.Context(), "claim_processing_failed", "files", len(files), "error", err)
		writeError(w, err)
		return
	}

	w.Header().Set("X-Claim-Id", result.ClaimID)
	writeJSON(w, http.StatusOK, result.Envelope)
}

// readUploadedFiles returns every part of the repeated "files" field. A
// request that is not multipart yields no files.
func readUploadedFiles(r *http.Request) ([]domain.UploadedFile, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[filesField]
	files := make([]domain.UploadedFile, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload "+header.Filename, err)
		}
		files = append(files, domain.UploadedFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
