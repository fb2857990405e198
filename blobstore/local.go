package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/bimtree/internal/fs"
)

// LocalStore implements BlobStore on the local file system: one directory per
// partition and one file per blob.
//
// Writes go to a hidden temp file that is fsynced and renamed into place, so a
// reader never sees a torn record. Entries whose name starts with a dot are
// internal and never listed.
type LocalStore struct {
	root string
	fs   fs.FileSystem
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithFileSystem replaces the file system, typically with an fs.FaultyFS in tests.
func WithFileSystem(fsys fs.FileSystem) LocalOption {
	return func(s *LocalStore) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{root: root, fs: fs.Default}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the base directory.
func (s *LocalStore) Root() string { return s.root }

// Location returns the filesystem path of name.
func (s *LocalStore) Location(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Open opens a blob for reading.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.OpenFile(s.Location(name), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
	}
	return &localBlob{f: f, size: info.Size()}, nil
}

// Put writes a blob atomically (temp file, fsync, rename, directory fsync).
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (err error) {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	final := s.Location(name)
	dir := filepath.Dir(final)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := filepath.Join(dir, ".tmp-"+uuid.NewString()+"-"+filepath.Base(final))
	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = s.fs.Rename(tmp, final); err != nil {
		return err
	}
	return fs.SyncDir(s.fs, dir)
}

// Delete removes a blob.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := s.fs.Remove(s.Location(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DeletePrefix removes a whole partition directory. The directory is first
// renamed to a hidden trash name, which makes the partition disappear from
// List in one step, and then removed.
//
// Prefixes that do not end in "/" are deleted blob by blob.
func (s *LocalStore) DeletePrefix(ctx context.Context, prefix string) error {
	dir, ok := strings.CutSuffix(prefix, "/")
	if !ok || ValidateName(dir) != nil {
		names, err := s.List(ctx, prefix)
		if err != nil {
			return err
		}
		for _, name := range names {
			if err := s.Delete(ctx, name); err != nil {
				return err
			}
		}
		return nil
	}

	src := s.Location(dir)
	if _, err := s.fs.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	trash := filepath.Join(filepath.Dir(src), ".trash-"+uuid.NewString())
	if err := s.fs.Rename(src, trash); err != nil {
		return err
	}
	_ = fs.SyncDir(s.fs, filepath.Dir(src))
	return s.fs.RemoveAll(trash)
}

// List returns all blobs under prefix, recursively.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	base := ""
	if i := strings.LastIndex(prefix, "/"); i >= 0 {
		base = prefix[:i]
	}

	entries, err := s.fs.ReadDir(s.Location(base))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type pending struct {
		rel     string
		entries []os.DirEntry
	}
	stack := []pending{{rel: base, entries: entries}}

	var names []string
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, e := range cur.entries {
			if strings.HasPrefix(e.Name(), ".") {
				continue
			}
			rel := e.Name()
			if cur.rel != "" {
				rel = path.Join(cur.rel, e.Name())
			}
			if e.IsDir() {
				// Skip subtrees that cannot contain a match.
				if !strings.HasPrefix(rel+"/", prefix) && !strings.HasPrefix(prefix, rel+"/") {
					continue
				}
				sub, err := s.fs.ReadDir(s.Location(rel))
				if err != nil {
					return nil, err
				}
				stack = append(stack, pending{rel: rel, entries: sub})
				continue
			}
			if strings.HasPrefix(rel, prefix) {
				names = append(names, rel)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	f    fs.File
	size int64
}

func (b *localBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= b.size {
		return 0, io.EOF
	}
	return b.f.ReadAt(p, off)
}

func (b *localBlob) Close() error { return b.f.Close() }

func (b *localBlob) Size() int64 { return b.size }
