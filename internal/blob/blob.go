// Package blob stores the citation artifacts the index's sourcepage field
// points at: one blob per PDF page, one per file for other formats.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Store holds citation blobs by name.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader) error
	Remove(ctx context.Context, name string) error
	// RemoveFile removes every blob belonging to a source file: the per-page
	// "<base>-<n>.pdf" blobs plus the plain basename. It returns the number
	// of blobs removed.
	RemoveFile(ctx context.Context, filename string) (int, error)
	List(ctx context.Context) ([]string, error)
}

// FSStore keeps blobs as flat files under a base directory.
type FSStore struct {
	BaseDir string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{BaseDir: baseDir}, nil
}

func (s *FSStore) Upload(_ context.Context, name string, r io.Reader) error {
	path := filepath.Join(s.BaseDir, sanitizeName(name))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) Remove(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.BaseDir, sanitizeName(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) RemoveFile(ctx context.Context, filename string) (int, error) {
	names, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	base := filepath.Base(filename)
	prefix := strings.TrimSuffix(base, filepath.Ext(base))
	pagePattern := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `-\d+\.pdf$`)

	removed := 0
	for _, name := range names {
		if name != base && !pagePattern.MatchString(name) {
			continue
		}
		if err := s.Remove(ctx, name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *FSStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func sanitizeName(n string) string {
	n = filepath.Base(n)
	out := make([]rune, 0, len(n))
	for _, r := range n {
		if r == '/' || r == '\\' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
