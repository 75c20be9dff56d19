package paths

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestResolverPassThroughWhenFree(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(true)

	candidate := filepath.Join(dir, "photo.webp")
	final, ok := resolver.Resolve(candidate)
	assert.True(t, ok)
	assert.Equal(t, candidate, final)
}

func TestResolverAppendsCounterSuffix(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "a.webp"))

	resolver := NewResolver(true)
	final, ok := resolver.Resolve(filepath.Join(dir, "a.webp"))
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a (2).webp"), final)

	touchFile(t, filepath.Join(dir, "a (2).webp"))
	final, ok = NewResolver(true).Resolve(filepath.Join(dir, "a.webp"))
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a (3).webp"), final)
}

func TestResolverDisabledSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	touchFile(t, filepath.Join(dir, "photo.webp"))

	resolver := NewResolver(false)
	_, ok := resolver.Resolve(filepath.Join(dir, "photo.webp"))
	assert.False(t, ok)
}

func TestResolverDisabledPassThroughWhenFree(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(false)

	candidate := filepath.Join(dir, "photo.webp")
	final, ok := resolver.Resolve(candidate)
	assert.True(t, ok)
	assert.Equal(t, candidate, final)
}

func TestResolverReservesWithinRun(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(true)
	candidate := filepath.Join(dir, "dup.webp")

	// Nothing on disk; the reservation set alone must disambiguate two
	// sources that mirror to the same destination.
	first, ok := resolver.Resolve(candidate)
	require.True(t, ok)
	second, ok := resolver.Resolve(candidate)
	require.True(t, ok)

	assert.Equal(t, candidate, first)
	assert.Equal(t, filepath.Join(dir, "dup (2).webp"), second)
}

func TestResolverDisabledReservesWithinRun(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(false)
	candidate := filepath.Join(dir, "dup.webp")

	_, ok := resolver.Resolve(candidate)
	require.True(t, ok)
	_, ok = resolver.Resolve(candidate)
	assert.False(t, ok)
}

func TestResolverConcurrentResolutionsUnique(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(true)
	candidate := filepath.Join(dir, "burst.webp")

	const n = 32
	results := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			final, ok := resolver.Resolve(candidate)
			assert.True(t, ok)
			results <- final
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for final := range results {
		assert.False(t, seen[final], "destination %s handed out twice", final)
		seen[final] = true
	}
	assert.Len(t, seen, n)
}
