package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "crateship"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the cache directory for scratch state (sandbox transfers,
// toolchain probe results).
//
//	Linux:   ~/.cache/crateship
//	macOS:   ~/Library/Caches/crateship
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}

// Default output directory for artifact bundles, relative to the project
// root.
//
// Bundles land next to cargo's own build output so that cleaning the target
// directory also removes stale bundles.
func DefaultOutput(projectRoot string) string {
	return filepath.Join(projectRoot, "target", "lambda")
}
