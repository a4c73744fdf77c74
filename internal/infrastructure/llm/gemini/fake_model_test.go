package gemini

import (
	"context"
	"sync"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
)

type fakeModel struct {
	mu       sync.Mutex
	replies  map[string]string
	err      error
	requests []Request
}

func (f *fakeModel) Generate(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.replies[req.Step], nil
}

type countingFallbacks struct {
	steps []string
}

func (c *countingFallbacks) RecordParseFallback(step string) {
	c.steps = append(c.steps, step)
}

func remoteSet(names ...string) *domain.RemoteFiles {
	files := domain.NewRemoteFiles()
	for _, name := range names {
		files.Put(domain.RemoteFile{Filename: name, Name: "files/" + name, URI: "https://files/" + name, MIMEType: "application/pdf"})
	}
	return files
}
