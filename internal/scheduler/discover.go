package scheduler

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Discover walks inputRoot and returns every candidate source file: regular
// files whose extension is in the allow-list. Dotfiles and symlinks are
// excluded. Results are sorted so task creation order is deterministic. A
// walk error is fatal to the run; it means the input tree is unreadable.
func Discover(inputRoot string, extensions []string, logger *zap.Logger) ([]string, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		// Hidden files and non-regular entries (symlinks, devices) are
		// never candidates.
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !allowed[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input root %s: %w", inputRoot, err)
	}

	sort.Strings(files)

	logger.Info("Discovered candidate files",
		zap.String("input_root", inputRoot),
		zap.Int("count", len(files)))

	return files, nil
}
