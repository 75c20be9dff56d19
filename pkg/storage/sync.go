package storage

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// UploadSummary totals the result of a directory sync
type UploadSummary struct {
	Uploaded int      `json:"uploaded"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Syncer mirrors a local directory tree into an object store
type Syncer struct {
	store  ObjectStore
	config UploadConfig
	logger *zap.Logger
}

// NewSyncer creates a new directory syncer
func NewSyncer(store ObjectStore, config UploadConfig, logger *zap.Logger) *Syncer {
	return &Syncer{
		store:  store,
		config: config,
		logger: logger,
	}
}

// SyncDir uploads every regular file under localRoot, keyed by its path
// relative to localRoot under the configured prefix. Individual upload
// failures are collected in the summary rather than aborting the sync.
func (s *Syncer) SyncDir(ctx context.Context, localRoot string) (*UploadSummary, error) {
	var files []string
	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, NewStorageError("sync_walk", localRoot, err)
	}

	summary := &UploadSummary{}
	if len(files) == 0 {
		return summary, nil
	}

	concurrency := s.config.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}

	// Use a channel to limit concurrency
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, localPath := range files {
		wg.Add(1)
		go func(localPath string) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire semaphore
			defer func() { <-semaphore }() // Release semaphore

			rel, err := filepath.Rel(localRoot, localPath)
			if err == nil {
				err = s.store.Put(ctx, localPath, s.keyFor(rel))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, err.Error())
				s.logger.Warn("Upload failed",
					zap.String("path", localPath),
					zap.Error(err))
				return
			}
			summary.Uploaded++
		}(localPath)
	}

	wg.Wait()

	s.logger.Info("Upload sync completed",
		zap.Int("uploaded", summary.Uploaded),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// keyFor converts a local relative path into an object key
func (s *Syncer) keyFor(rel string) string {
	key := filepath.ToSlash(rel)
	if s.config.Prefix != "" {
		key = path.Join(s.config.Prefix, key)
	}
	return key
}
