package archivers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/mholt/archives"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// Fallback drives the mholt/archives Zip format. It has no open mode: the
// archive descriptor is opened by the first operation that needs it, and
// adds to a non-empty archive are appended with Insert.
type Fallback struct {
	path     string
	format   archives.Zip
	fd       *os.File
	writable bool
}

// NewFallback prepares an archiver for path. It only fails when the directory
// that would hold the archive is unusable.
func NewFallback(path string, opts ...Option) (*Fallback, error) {
	o := newOptions(opts)

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, engine.NewOpenError(path, engine.StatusOpen, err)
	}
	if !info.IsDir() {
		return nil, engine.NewOpenError(path, engine.StatusOpen, fmt.Errorf("%s is not a directory", dir))
	}

	return &Fallback{
		path: path,
		format: archives.Zip{
			Compression: o.compression.Method(),
		},
	}, nil
}

// openFd returns the archive descriptor, reopening it read-write when a
// writable descriptor is required.
func (a *Fallback) openFd(writable bool) (*os.File, error) {
	if a.fd != nil && (a.writable || !writable) {
		return a.fd, nil
	}
	if a.fd != nil {
		if err := a.fd.Close(); err != nil {
			a.fd = nil
			return nil, err
		}
		a.fd = nil
	}

	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	fd, err := os.OpenFile(a.path, flag, 0o644)
	if err != nil {
		return nil, err
	}

	a.fd = fd
	a.writable = writable
	return fd, nil
}

// closeFd flushes and closes the archive descriptor if one is open.
func (a *Fallback) closeFd() bool {
	if a.fd == nil {
		return true
	}

	var err error
	if a.writable {
		err = a.fd.Sync()
	}
	err = errors.Join(err, a.fd.Close())
	a.fd = nil
	a.writable = false
	return err == nil
}

func (a *Fallback) add(files []archives.FileInfo) bool {
	ctx := context.Background()

	fd, err := a.openFd(true)
	if err != nil {
		return false
	}
	info, err := fd.Stat()
	if err != nil {
		return false
	}
	if _, err := fd.Seek(0, io.SeekStart); err != nil {
		return false
	}

	if info.Size() == 0 {
		return a.format.Archive(ctx, fd, files) == nil
	}

	// Insert stops after the first directory of a batch without reporting
	// it, so entries go in one at a time.
	for _, f := range files {
		if _, err := fd.Seek(0, io.SeekStart); err != nil {
			return false
		}
		if err := a.format.Insert(ctx, fd, []archives.FileInfo{f}); err != nil {
			return false
		}
	}
	return true
}

// AddFile adds the file at path. The byte range arguments are accepted for
// contract parity and ignored.
func (a *Fallback) AddFile(path, localName string, start, length int64) bool {
	name := engine.EntryName(path, localName)
	if !engine.ValidFileName(name) {
		return false
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	files, err := archives.FilesFromDisk(context.Background(), &archives.FromDiskOptions{}, map[string]string{
		path: name,
	})
	if err != nil || len(files) == 0 {
		return false
	}
	return a.add(files)
}

// AddDir hands the whole tree to the engine's recursive add, removing path
// from and prepending localName to every entry name. The traversal root and
// symbolic links are dropped.
func (a *Fallback) AddDir(path, localName string) {
	root := filepath.Clean(path)
	prefix := strings.Trim(filepath.ToSlash(localName), "/")

	// "." places the tree at the archive root instead of under its base name.
	rootInArchive := prefix
	if rootInArchive == "" {
		rootInArchive = "."
	}

	files, err := archives.FilesFromDisk(context.Background(), &archives.FromDiskOptions{}, map[string]string{
		root: rootInArchive,
	})
	if err != nil {
		return
	}

	// Contents of a "." root come back as "/name".
	files = lo.FilterMap(files, func(f archives.FileInfo, _ int) (archives.FileInfo, bool) {
		f.NameInArchive = strings.TrimPrefix(f.NameInArchive, "/")
		name := strings.Trim(f.NameInArchive, "/")
		if name == "" || name == "." || name == prefix {
			return f, false
		}
		return f, f.LinkTarget == "" && f.Mode()&fs.ModeSymlink == 0
	})
	if len(files) == 0 {
		return
	}
	a.add(files)
}

// AddFromContent adds content through an in-memory file so the engine stores
// the bytes untouched.
func (a *Fallback) AddFromContent(localName string, content []byte) bool {
	name := engine.EntryName("", localName)
	if !engine.ValidFileName(name) {
		return false
	}

	mem := afero.NewMemMapFs()
	const memName = "content"
	if err := afero.WriteFile(mem, memName, content, 0o644); err != nil {
		return false
	}
	info, err := mem.Stat(memName)
	if err != nil {
		return false
	}

	return a.add([]archives.FileInfo{{
		FileInfo:      info,
		NameInArchive: name,
		Open: func() (fs.File, error) {
			f, err := mem.Open(memName)
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}})
}

// ExtractTo delegates to the engine's extraction walk, writing the selected
// entries below destination.
func (a *Fallback) ExtractTo(destination string, entries ...string) bool {
	fd, err := a.openFd(false)
	if err != nil {
		return false
	}
	if _, err := fd.Seek(0, io.SeekStart); err != nil {
		return false
	}
	if err := os.MkdirAll(destination, 0o755); err != nil {
		return false
	}

	set := engine.NewEntrySet(entries)
	err = a.format.Extract(context.Background(), fd, func(ctx context.Context, f archives.FileInfo) error {
		if !set.Match(f.NameInArchive) {
			return nil
		}
		return extractFallbackEntry(destination, f)
	})
	if err != nil {
		return false
	}

	return len(set.Missing()) == 0
}

func extractFallbackEntry(destination string, f archives.FileInfo) (err error) {
	target, err := engine.SafeJoin(destination, f.NameInArchive)
	if err != nil {
		return err
	}

	if f.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if f.LinkTarget != "" || !f.Mode().IsRegular() {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target, err)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	_, err = io.Copy(out, io.LimitReader(rc, MaxDecompressSize))
	return err
}

// Close maps to closeFd.
func (a *Fallback) Close() bool {
	return a.closeFd()
}

// Compile-time check that Fallback implements engine.Archiver.
var _ engine.Archiver = (*Fallback)(nil)
