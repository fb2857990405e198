package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error returned by a Fault without an explicit Err.
var ErrInjected = errors.New("fs: injected fault")

// Fault defines the failure behavior for matching paths.
type Fault struct {
	FailAfterBytes int64 // fail writes past this many bytes per file; 0 disables
	FailOnWrite    bool
	FailOnOpen     bool
	FailOnRead     bool
	FailOnSync     bool
	FailOnClose    bool
	FailOnRename   bool // matched against the source path
	FailOnReadDir  bool
	FailOnRemove   bool
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS is a FileSystem wrapper that injects errors for paths containing a
// registered pattern. When several patterns match, the most recently added wins.
type FaultyFS struct {
	FS FileSystem

	mu    sync.Mutex
	rules []rule
	hits  map[string]int
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{FS: fsys, hits: make(map[string]int)}
}

// AddRule registers a fault for every path containing pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
}

// Reset removes all rules and hit counters.
func (f *FaultyFS) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	f.hits = make(map[string]int)
}

// Hits returns how many faults were injected for pattern.
func (f *FaultyFS) Hits(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *FaultyFS) match(name string) (Fault, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.Contains(name, f.rules[i].pattern) {
			return f.rules[i].fault, f.rules[i].pattern
		}
	}
	return Fault{}, ""
}

func (f *FaultyFS) hit(pattern string, err error) error {
	f.mu.Lock()
	f.hits[pattern]++
	f.mu.Unlock()
	return err
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, pattern := f.match(name)
	if fault.FailOnOpen {
		return nil, f.hit(pattern, fault.err())
	}
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, fault: fault, pattern: pattern}, nil
}

func (f *FaultyFS) Remove(name string) error {
	if fault, pattern := f.match(name); fault.FailOnRemove {
		return f.hit(pattern, fault.err())
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if fault, pattern := f.match(path); fault.FailOnRemove {
		return f.hit(pattern, fault.err())
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault, pattern := f.match(oldpath); fault.FailOnRename {
		return f.hit(pattern, fault.err())
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	if fault, pattern := f.match(name); fault.FailOnReadDir {
		return nil, f.hit(pattern, fault.err())
	}
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fs      *FaultyFS
	fault   Fault
	pattern string
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	limited := ff.fault.FailAfterBytes > 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes
	if ff.fault.FailOnWrite || limited {
		return 0, ff.fs.hit(ff.pattern, ff.fault.err())
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if ff.fault.FailOnRead {
		return 0, ff.fs.hit(ff.pattern, ff.fault.err())
	}
	return ff.File.Read(p)
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (int, error) {
	if ff.fault.FailOnRead {
		return 0, ff.fs.hit(ff.pattern, ff.fault.err())
	}
	return ff.File.ReadAt(p, off)
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fs.hit(ff.pattern, ff.fault.err())
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fs.hit(ff.pattern, ff.fault.err())
	}
	return ff.File.Close()
}
