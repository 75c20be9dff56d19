package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingStore struct {
	mu     sync.Mutex
	keys   []string
	failOn string
}

func (r *recordingStore) Put(ctx context.Context, localPath, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && filepath.Base(localPath) == r.failOn {
		return errors.New("simulated upload failure")
	}
	r.keys = append(r.keys, key)
	return nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) sortedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := append([]string(nil), r.keys...)
	sort.Strings(keys)
	return keys
}

func writeOutputs(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, file := range files {
		path := filepath.Join(root, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0644))
	}
}

func TestSyncDirUploadsTreeWithPrefix(t *testing.T) {
	root := t.TempDir()
	writeOutputs(t, root, "a.webp", "nested/deep/b.webp")

	store := &recordingStore{}
	syncer := NewSyncer(store, UploadConfig{Bucket: "media", Prefix: "converted", Concurrency: 4}, zap.NewNop())

	summary, err := syncer.SyncDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"converted/a.webp", "converted/nested/deep/b.webp"}, store.sortedKeys())
}

func TestSyncDirNoPrefix(t *testing.T) {
	root := t.TempDir()
	writeOutputs(t, root, "solo.webp")

	store := &recordingStore{}
	syncer := NewSyncer(store, UploadConfig{Bucket: "media"}, zap.NewNop())

	summary, err := syncer.SyncDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, []string{"solo.webp"}, store.sortedKeys())
}

func TestSyncDirCollectsFailures(t *testing.T) {
	root := t.TempDir()
	writeOutputs(t, root, "good.webp", "bad.webp")

	store := &recordingStore{failOn: "bad.webp"}
	syncer := NewSyncer(store, UploadConfig{Bucket: "media"}, zap.NewNop())

	summary, err := syncer.SyncDir(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Uploaded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "simulated upload failure")
}

func TestSyncDirEmptyTree(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, UploadConfig{Bucket: "media"}, zap.NewNop())

	summary, err := syncer.SyncDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Uploaded)
	assert.Equal(t, 0, summary.Failed)
}

func TestSyncDirMissingRoot(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, UploadConfig{Bucket: "media"}, zap.NewNop())

	_, err := syncer.SyncDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestUploadConfigEnabled(t *testing.T) {
	assert.False(t, UploadConfig{}.Enabled())
	assert.True(t, UploadConfig{Bucket: "media"}.Enabled())
}
