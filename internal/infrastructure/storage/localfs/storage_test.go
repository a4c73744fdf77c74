package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

func TestLoadReadsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"bill.pdf": "%PDF-bill", "summary.pdf": "%PDF-summary"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	files, err := New(dir, 0).Load(context.Background(), []string{"summary.pdf", filepath.Join(dir, "bill.pdf")})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(files) != 2 || files[0].Filename != "summary.pdf" || files[1].Filename != "bill.pdf" {
		t.Fatalf("unexpected files: %+v", files)
	}
	if string(files[1].Data) != "%PDF-bill" || files[1].ContentType != "application/pdf" {
		t.Fatalf("unexpected bill record: %+v", files[1])
	}
}

func TestLoadMissingFileIsInvalidInput(t *testing.T) {
	_, err := New(t.TempDir(), 0).Load(context.Background(), []string{"missing.pdf"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadEnforcesSizeLimit(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "big.pdf"), []byte(strings.Repeat("x", 11)), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := New(dir, 10).Load(context.Background(), []string{"big.pdf"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestSaveJSONCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	storage := New(dir, 0)
	if err := storage.SaveJSON(context.Background(), "out/decision.json", map[string]string{"status": "approved"}); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "out", "decision.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil || got["status"] != "approved" {
		t.Fatalf("unexpected output %s (%v)", raw, err)
	}
}
