package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

// Storage reads claim documents from and writes results to a local directory.
type Storage struct {
	basePath string
	maxBytes int64
}

// New roots relative paths at basePath ("." when empty). maxBytes <= 0 disables
// the per-file size limit.
func New(basePath string, maxBytes int64) *Storage {
	if basePath == "" {
		basePath = "."
	}
	return &Storage{basePath: basePath, maxBytes: maxBytes}
}

// Load reads each path into an upload record named after the file's base name.
func (s *Storage) Load(ctx context.Context, paths []string) ([]domain.UploadedFile, error) {
	files := make([]domain.UploadedFile, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, err := s.loadOne(path)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func (s *Storage) loadOne(path string) (domain.UploadedFile, error) {
	full := s.resolve(path)
	f, err := os.Open(full)
	if err != nil {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "open "+path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if s.maxBytes > 0 {
		reader = io.LimitReader(f, s.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("read file %s: %w", path, err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return domain.UploadedFile{}, domain.WrapError(domain.ErrInvalidInput, "read "+path, fmt.Errorf("file exceeds %d bytes", s.maxBytes))
	}

	return domain.UploadedFile{
		Filename:    filepath.Base(full),
		ContentType: mime.TypeByExtension(filepath.Ext(full)),
		Data:        data,
	}, nil
}

// SaveJSON writes v as indented JSON to key under the base path.
func (s *Storage) SaveJSON(_ context.Context, key string, v any) error {
	path := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.basePath, path)
}
