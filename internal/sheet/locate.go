package sheet

import (
	"os"
	"path/filepath"
)

// Locate searches an ordered list of candidate directories for a named
// workbook and returns the first existing path. The search order is
// configuration, not logic: callers pass cfg.Sheets.Dirs verbatim so the
// priority stays a testable config value. A miss returns ("", false) — the
// spreadsheets being absent is a normal, degraded-mode condition.
func Locate(filename string, dirs []string) (string, bool) {
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		path, err := filepath.Abs(filepath.Join(dir, filename))
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
