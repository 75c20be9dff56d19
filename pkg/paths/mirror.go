package paths

import (
	"fmt"
	"path/filepath"

	"webpmill/pkg/utils"
)

// Mirror maps source files under an input root to destination paths under an
// output root, preserving the relative directory layout and replacing the
// source extension with the target format's extension.
type Mirror struct {
	inputRoot  string
	outputRoot string
	targetExt  string
}

// NewMirror creates a mirror for the given roots. targetExt must include the
// leading dot, e.g. ".webp".
func NewMirror(inputRoot, outputRoot, targetExt string) *Mirror {
	return &Mirror{
		inputRoot:  inputRoot,
		outputRoot: outputRoot,
		targetExt:  targetExt,
	}
}

// DestinationFor returns the mirrored destination path for sourcePath and
// ensures the destination's parent directory chain exists. Creation is
// idempotent, so concurrent calls for sibling files cannot race-fail.
func (m *Mirror) DestinationFor(sourcePath string) (string, error) {
	rel, err := filepath.Rel(m.inputRoot, sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s against %s: %w", sourcePath, m.inputRoot, err)
	}

	destDir := filepath.Join(m.outputRoot, filepath.Dir(rel))
	if err := utils.EnsureDir(destDir); err != nil {
		return "", utils.WrapErrorf(err, "failed to create output directory %s", destDir)
	}

	return filepath.Join(destDir, utils.GetFileNameWithoutExt(rel)+m.targetExt), nil
}
