package ingest

import (
	"path/filepath"
	"strings"

	"github.com/vinochelo/extractor/constants"
)

// AllowedExt reports whether ext (with or without the dot) is picked up.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
