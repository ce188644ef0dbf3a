// Package sink provides output destinations for generated files.
package sink

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrInvalidPath is returned for paths that are absolute, unclean or
	// escape the sink root.
	ErrInvalidPath = errors.Base("invalid output path")

	// ErrExists is returned by a non-overwriting sink when the target
	// already exists.
	ErrExists = errors.Base("file already exists")
)

// OutputSink receives generated file content. Implementations must be
// safe for concurrent calls.
type OutputSink interface {
	// WriteFile writes content to a slash-separated path relative to the
	// sink.
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FilesystemSink writes below a directory. Each file is written to a
// temporary file first and renamed into place, so readers never observe
// a partial file.
type FilesystemSink struct {
	Root string

	// Mode defaults to 0644.
	Mode os.FileMode

	// Overwrite replaces existing files. Without it WriteFile returns
	// ErrExists.
	Overwrite bool
}

// NewFilesystemSink returns an overwriting sink rooted at root.
func NewFilesystemSink(root string) *FilesystemSink {
	return &FilesystemSink{Root: root, Mode: 0o644, Overwrite: true}
}

// WriteFile writes content to path within the root directory.
func (s *FilesystemSink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(s.Root, filepath.FromSlash(path))
	absRoot, err := filepath.Abs(s.Root)
	if err != nil {
		return errors.WithStack(err)
	}
	absPath, err := filepath.Abs(full)
	if err != nil {
		return errors.WithStack(err)
	}
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return errors.WithDetails(ErrInvalidPath, "path", path, "reason", "escapes root")
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	mode := s.Mode
	if mode == 0 {
		mode = 0o644
	}

	tmp, err := os.CreateTemp(dir, ".apischema-*.tmp")
	if err != nil {
		return errors.WithStack(err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	_, writeErr := tmp.Write(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		cleanup()
		return errors.WithStack(writeErr)
	}
	if closeErr != nil {
		cleanup()
		return errors.WithStack(closeErr)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return errors.WithStack(err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tmpPath, full); err != nil {
			cleanup()
			return errors.WithStack(err)
		}
		return nil
	}
	// Link fails atomically if the target exists.
	err = os.Link(tmpPath, full)
	cleanup()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrExist):
		return errors.WithDetails(ErrExists, "path", path)
	default:
		return errors.WithStack(err)
	}
}

// MemorySink keeps written files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content under path.
func (s *MemorySink) WriteFile(ctx context.Context, path string, content []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), content...)
	return nil
}

// Get returns a copy of the file at path, or nil.
func (s *MemorySink) Get(path string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[path]
	if !ok {
		return nil
	}
	return append([]byte(nil), content...)
}

// Paths returns the written paths, sorted.
func (s *MemorySink) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Reset removes every file.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = make(map[string][]byte)
}

// ValidatePath checks that path is relative, slash separated, clean and
// free of ".." components.
func ValidatePath(path string) error {
	invalid := func(reason string) error {
		return errors.WithDetails(ErrInvalidPath, "path", path, "reason", reason)
	}
	switch {
	case path == "":
		return invalid("empty")
	case strings.HasPrefix(path, "/") || filepath.IsAbs(path):
		return invalid("absolute")
	case len(path) >= 2 && path[1] == ':':
		return invalid("absolute")
	case strings.Contains(path, `\`):
		return invalid("backslash")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return invalid("traversal")
		}
	}
	if clean := filepath.ToSlash(filepath.Clean(path)); clean != path {
		return invalid("not clean")
	}
	return nil
}
