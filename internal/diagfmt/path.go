package diagfmt

import (
	"path/filepath"
	"strings"
)

// autoPathLimit is the longest path PathModeAuto prints in full.
const autoPathLimit = 40

func formatPath(path string, mode PathMode, baseDir string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if baseDir != "" {
			if rel, err := filepath.Rel(baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeAuto:
		if filepath.IsAbs(path) && len(path) > autoPathLimit {
			return filepath.Base(path)
		}
	}
	return path
}
