package paths

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"webpmill/pkg/utils"
)

// Resolver finalizes destination paths for a single run. Disk existence is
// re-checked at resolution time, and every path handed out is remembered, so
// two tasks resolved concurrently can never finalize the same destination.
// Resolution is check-then-reserve at run scope, not an exclusive create: a
// writer outside this process can still take a resolved path before the
// conversion lands. That window is a known limitation.
type Resolver struct {
	mu         sync.Mutex
	appendName bool
	reserved   map[string]struct{}
}

// NewResolver creates a resolver. With appendName true, colliding candidates
// are renamed with a " (N)" suffix; with it false, collisions signal a skip.
func NewResolver(appendName bool) *Resolver {
	return &Resolver{
		appendName: appendName,
		reserved:   make(map[string]struct{}),
	}
}

// Resolve returns the final destination path for candidate and reserves it
// for the remainder of the run. When renaming is enabled the result is the
// candidate itself if unused, otherwise the first free "name (N).ext"
// variant, N counting up from 2. When renaming is disabled, a candidate that
// already exists on disk or was reserved by an earlier task returns ok=false
// and the caller skips the file.
func (r *Resolver) Resolve(candidate string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.free(candidate) {
		r.reserved[candidate] = struct{}{}
		return candidate, true
	}

	if !r.appendName {
		return candidate, false
	}

	dir := filepath.Dir(candidate)
	ext := filepath.Ext(candidate)
	stem := strings.TrimSuffix(filepath.Base(candidate), ext)

	for n := 2; ; n++ {
		variant := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if r.free(variant) {
			r.reserved[variant] = struct{}{}
			return variant, true
		}
	}
}

// free reports whether path is neither reserved this run nor present on disk.
// Callers must hold r.mu.
func (r *Resolver) free(path string) bool {
	if _, taken := r.reserved[path]; taken {
		return false
	}
	return !utils.FileExists(path)
}
