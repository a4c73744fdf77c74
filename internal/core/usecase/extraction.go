package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/kirillkom/claim-assistant/internal/core/domain"
	"github.com/kirillkom/claim-assistant/internal/core/ports"
)

type extractionTask struct {
	file    domain.RemoteFile
	docType domain.DocumentType
}

type extractionResult struct {
	task     extractionTask
	document domain.ExtractedDocument
	err      error
}

// planExtractions keeps classification order. A file classified more than once
// yields one task per extractable record.
func planExtractions(classifications []domain.ClassificationRecord, remote *domain.RemoteFiles) []extractionTask {
	tasks := make([]extractionTask, 0, len(classifications))
	for _, record := range classifications {
		if !record.Type.Extractable() {
			continue
		}
		file, ok := remote.Get(record.Filename)
		if !ok {
			continue
		}
		tasks = append(tasks, extractionTask{file: file, docType: record.Type})
	}
	return tasks
}

// runExtractions runs every task and records each outcome at the task's index.
// One failure never cancels its siblings.
func runExtractions(ctx context.Context, extractor ports.DocumentExtractor, tasks []extractionTask, limit int) []extractionResult {
	results := make([]extractionResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup
	for i, task := range tasks {
		results[i].task = task
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].err = err
			continue
		}

		wg.Add(1)
		go func(i int, task extractionTask) {
			defer wg.Done()
			defer sem.Release(1)

			doc, err := extractor.Extract(ctx, task.file, task.docType)
			results[i].document = doc
			results[i].err = err
		}(i, task)
	}
	wg.Wait()
	return results
}
