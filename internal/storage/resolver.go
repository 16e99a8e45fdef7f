// Package storage locates and persists vendor document binaries on disk.
// Historical deployments scattered uploads across several roots, so reads go
// through a multi-root resolver while writes always target the canonical
// root, letting the tree converge over time.
package storage

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/normalize"
)

// Resolver searches an ordered list of storage roots for document files and
// writes new content to the canonical (first) root. The root order is
// configuration, not logic: earlier roots win on a lookup.
type Resolver struct {
	roots    []string
	logoName string
}

// NewResolver builds a resolver over the given roots. The first root is
// canonical: Write and RemoveOwner operate on it exclusively. Empty and
// duplicate roots are dropped, order preserved.
func NewResolver(roots []string, logoName string) *Resolver {
	seen := make(map[string]struct{}, len(roots))
	var out []string
	for _, r := range roots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return &Resolver{roots: out, logoName: logoName}
}

// DefaultRoots expands a base directory into the legacy root layout:
// uploads, instance/uploads and static under both the directory itself and
// its parent. Used to seed the configured root list on fresh installs.
func DefaultRoots(baseDir string) []string {
	parent := filepath.Dir(baseDir)
	return []string{
		filepath.Join(baseDir, "uploads"),
		filepath.Join(baseDir, "instance", "uploads"),
		filepath.Join(parent, "uploads"),
		filepath.Join(parent, "instance", "uploads"),
		filepath.Join(baseDir, "static"),
		filepath.Join(parent, "static"),
	}
}

// CanonicalRoot returns the write target root, or "" when the resolver has
// no roots at all.
func (r *Resolver) CanonicalRoot() string {
	if len(r.roots) == 0 {
		return ""
	}
	return r.roots[0]
}

// dirs returns the full ordered candidate directory list for one owner:
// every root, plus its owner subdirectory and its static/uploads
// subdirectories, de-duplicated with order preserved.
func (r *Resolver) dirs(ownerID string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	for _, root := range r.roots {
		add(root)
		if ownerID != "" {
			add(filepath.Join(root, ownerID))
		}
		add(filepath.Join(root, "static"))
		add(filepath.Join(root, "uploads"))
	}
	return out
}

// Locate searches every candidate directory for the named document.
//
// Phase A tries each filename variant in each directory in priority order
// and returns the first existing, non-empty file. Phase B runs only when
// phase A misses: it lists each directory and returns the first entry whose
// alphanumeric key matches the declared name, catching files that were
// renamed with different separators or casing.
//
// A miss returns ("", nil, false). That is the normal "content unavailable"
// outcome, not an error.
func (r *Resolver) Locate(ownerID, name string) (string, []byte, bool) {
	dirs := r.dirs(ownerID)
	variants := Variants(name)
	tried := make(map[string]struct{})

	for _, dir := range dirs {
		for _, variant := range variants {
			path := filepath.Join(dir, variant)
			if _, dup := tried[path]; dup {
				continue
			}
			tried[path] = struct{}{}
			if data, ok := readFile(path); ok {
				return path, data, true
			}
		}
	}

	target := normalize.Key(name)
	if target == "" {
		return "", nil, false
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if _, dup := tried[path]; dup {
				continue
			}
			tried[path] = struct{}{}
			if normalize.Key(entry.Name()) != target {
				continue
			}
			if data, ok := readFile(path); ok {
				return path, data, true
			}
		}
	}
	return "", nil, false
}

func readFile(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		zap.L().Warn("storage: read failed", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Write persists document content under the canonical root, creating the
// owner subdirectory as needed, and returns the absolute path written.
// Concurrent writes to the same owner and name are last-writer-wins.
func (r *Resolver) Write(ownerID, name string, data []byte) (string, error) {
	root := r.CanonicalRoot()
	if root == "" {
		return "", eris.New("storage: no canonical root configured")
	}
	filename := Sanitize(name)
	if filename == "" {
		return "", eris.Errorf("storage: invalid filename %q", name)
	}
	dir := filepath.Join(root, ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "storage: create %s", dir)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "storage: write %s", path)
	}
	return path, nil
}

// RemoveOwner deletes the owner's subtree under the canonical root. Called
// on vendor deletion; failures are logged and swallowed since the database
// cascade has already committed.
func (r *Resolver) RemoveOwner(ownerID string) {
	root := r.CanonicalRoot()
	if root == "" || ownerID == "" {
		return
	}
	dir := filepath.Join(root, ownerID)
	if err := os.RemoveAll(dir); err != nil {
		zap.L().Warn("storage: remove owner subtree failed",
			zap.String("dir", dir),
			zap.Error(err))
	}
}

// LogoPath searches the roots for the configured email logo asset, checking
// each root's static subdirectory and then the root itself. Returns "" when
// no logo is present; callers send the email without the inline image.
func (r *Resolver) LogoPath() string {
	if r.logoName == "" {
		return ""
	}
	seen := make(map[string]struct{})
	for _, root := range r.roots {
		for _, path := range []string{
			filepath.Join(root, "static", r.logoName),
			filepath.Join(root, r.logoName),
		} {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}
