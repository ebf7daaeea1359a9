package archivers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// MaxDecompressSize is the largest uncompressed entry ExtractTo will write (10GB).
const MaxDecompressSize = 10 * 1024 * 1024 * 1024

// Native drives the klauspost zip codec directly. Adds are staged and the
// archive is rewritten on Close; ExtractTo only sees entries that were
// committed when the archive was opened.
type Native struct {
	path        string
	write       bool
	fs          afero.Fs
	compression engine.Compression

	src    afero.File
	reader *zip.Reader
	staged []stagedEntry
	closed bool
}

type stagedEntry struct {
	name    string
	dir     bool
	mode    fs.FileMode
	modTime time.Time
	open    func() (io.ReadCloser, error)
}

// NewNative opens the archive at path. With write set the file is created or
// truncated immediately, so an unwritable path fails here rather than on
// Close.
func NewNative(path string, write bool, opts ...Option) (*Native, error) {
	o := newOptions(opts)
	a := &Native{
		path:        path,
		write:       write,
		fs:          o.fs,
		compression: o.compression,
	}

	if write {
		if err := a.create(); err != nil {
			return nil, err
		}
		return a, nil
	}

	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Native) create() error {
	f, err := a.fs.OpenFile(a.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return engine.NewOpenError(a.path, engine.StatusOpen, err)
	}

	zw := zip.NewWriter(f)
	err = errors.Join(zw.Close(), f.Close())
	if err != nil {
		return engine.NewOpenError(a.path, engine.StatusOpen, err)
	}
	return nil
}

func (a *Native) open() error {
	f, err := a.fs.Open(a.path)
	if err != nil {
		return engine.NewOpenError(a.path, engine.StatusOK, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return engine.NewOpenError(a.path, engine.StatusRead, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return engine.NewOpenError(a.path, engine.StatusOpen, fmt.Errorf("%s is a directory", a.path))
	}

	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		if errors.Is(err, zip.ErrFormat) {
			return engine.NewOpenError(a.path, engine.StatusNoZip, err)
		}
		return engine.NewOpenError(a.path, engine.StatusInconsistent, err)
	}
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	a.src = f
	a.reader = r
	return nil
}

// AddFile stages the file at path. A non-zero start or length stores only
// that byte range; length 0 reads to the end of the file.
func (a *Native) AddFile(path, localName string, start, length int64) bool {
	if a.closed || start < 0 || length < 0 {
		return false
	}

	name := engine.EntryName(path, localName)
	if !engine.ValidFileName(name) {
		return false
	}

	info, err := a.fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() || start > info.Size() {
		return false
	}

	size := info.Size() - start
	if length > 0 && length < size {
		size = length
	}

	a.stage(stagedEntry{
		name:    name,
		mode:    info.Mode(),
		modTime: info.ModTime(),
		open:    a.sectionOpener(path, start, size),
	})
	return true
}

func (a *Native) sectionOpener(path string, start, size int64) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		f, err := a.fs.Open(path)
		if err != nil {
			return nil, err
		}
		return &sectionReadCloser{
			SectionReader: io.NewSectionReader(f, start, size),
			closer:        f,
		}, nil
	}
}

type sectionReadCloser struct {
	*io.SectionReader
	closer io.Closer
}

func (s *sectionReadCloser) Close() error {
	return s.closer.Close()
}

// AddDir walks path in pre-order, lexical within each directory, staging an
// empty-directory entry for every directory and a file entry for every
// regular file. The root itself and non-regular files are skipped.
func (a *Native) AddDir(path, localName string) {
	if a.closed {
		return
	}

	root := filepath.Clean(path)
	_ = afero.Walk(a.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip entries with errors
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		name := engine.JoinEntry(localName, rel)

		switch {
		case info.IsDir():
			a.stage(stagedEntry{
				name:    engine.DirEntryName(name),
				dir:     true,
				mode:    info.Mode(),
				modTime: info.ModTime(),
			})
		case info.Mode().IsRegular():
			a.stage(stagedEntry{
				name:    name,
				mode:    info.Mode(),
				modTime: info.ModTime(),
				open:    a.sectionOpener(p, 0, info.Size()),
			})
		}
		return nil
	})
}

// AddFromContent stages an entry holding a copy of content.
func (a *Native) AddFromContent(localName string, content []byte) bool {
	if a.closed {
		return false
	}

	name := engine.EntryName("", localName)
	if !engine.ValidFileName(name) {
		return false
	}

	data := bytes.Clone(content)
	a.stage(stagedEntry{
		name:    name,
		mode:    0o644,
		modTime: time.Now(),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	})
	return true
}

func (a *Native) stage(e stagedEntry) {
	a.staged = append(a.staged, e)
}

// ExtractTo writes committed entries below destination.
func (a *Native) ExtractTo(destination string, entries ...string) bool {
	if a.closed {
		return false
	}

	set := engine.NewEntrySet(entries)
	if err := a.fs.MkdirAll(destination, 0o755); err != nil {
		return false
	}

	if a.reader != nil {
		for _, f := range a.reader.File {
			if !set.Match(f.Name) {
				continue
			}
			if err := a.extractEntry(destination, f); err != nil {
				return false
			}
		}
	}

	return len(set.Missing()) == 0
}

func (a *Native) extractEntry(destination string, f *zip.File) error {
	target, err := engine.SafeJoin(destination, f.Name)
	if err != nil {
		return err
	}

	mode := f.Mode()
	if mode.IsDir() {
		return a.fs.MkdirAll(target, 0o755)
	}
	if !mode.IsRegular() {
		return nil
	}

	if err := a.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target, err)
	}
	return a.extractFile(f, target)
}

func (a *Native) extractFile(f *zip.File, target string) (err error) {
	declaredSize := f.UncompressedSize64
	if declaredSize > MaxDecompressSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", declaredSize, MaxDecompressSize)
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := a.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	// One extra byte detects entries larger than their declared size
	written, err := io.Copy(out, io.LimitReader(rc, int64(declaredSize)+1))
	if err != nil {
		return err
	}
	if written > int64(declaredSize) {
		return fmt.Errorf("decompressed size exceeds declared size")
	}
	return nil
}

// Close commits staged entries and releases the archive. A second call
// returns false.
func (a *Native) Close() bool {
	if a.closed {
		return false
	}
	a.closed = true

	var tmpName string
	var err error
	if a.write || len(a.staged) > 0 {
		tmpName, err = a.commit()
	}

	if a.src != nil {
		err = errors.Join(err, a.src.Close())
		a.src = nil
		a.reader = nil
	}

	if tmpName != "" {
		if err != nil {
			_ = a.fs.Remove(tmpName)
			return false
		}
		if renameErr := a.fs.Rename(tmpName, a.path); renameErr != nil {
			_ = a.fs.Remove(tmpName)
			return false
		}
	}
	a.staged = nil

	return err == nil
}

// commit writes the committed and staged entries into a temporary file next
// to the archive and returns its name.
func (a *Native) commit() (string, error) {
	tmp, err := afero.TempFile(a.fs, filepath.Dir(a.path), ".zipfactory-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary archive: %w", err)
	}

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	err = a.writeEntries(zw)
	err = errors.Join(err, zw.Close(), tmp.Close())
	if err == nil {
		err = a.fs.Chmod(tmp.Name(), 0o644)
	}
	return tmp.Name(), err
}

func (a *Native) writeEntries(zw *zip.Writer) error {
	last := make(map[string]int, len(a.staged))
	for i, e := range a.staged {
		last[e.name] = i
	}

	if a.reader != nil {
		for _, f := range a.reader.File {
			if _, replaced := last[f.Name]; replaced {
				continue
			}
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copying entry %s: %w", f.Name, err)
			}
		}
	}

	for i, e := range a.staged {
		if last[e.name] != i {
			continue
		}
		if err := a.writeStaged(zw, e); err != nil {
			return fmt.Errorf("writing entry %s: %w", e.name, err)
		}
	}
	return nil
}

func (a *Native) writeStaged(zw *zip.Writer, e stagedEntry) error {
	header := &zip.FileHeader{
		Name:     e.name,
		Modified: e.modTime,
		Method:   a.compression.Method(),
	}
	header.SetMode(e.mode)
	if e.dir {
		header.Method = zip.Store
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if e.dir {
		return nil
	}

	rc, err := e.open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	_, err = io.Copy(w, rc)
	return err
}

// EntryInfo describes one entry of an archive on disk.
type EntryInfo struct {
	Name   string `json:"name"`
	Size   uint64 `json:"size"`
	Method uint16 `json:"method"`
	Dir    bool   `json:"dir"`
}

// List returns the entries of the archive at path in central directory order.
func List(fsys afero.Fs, path string) ([]EntryInfo, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	entries := make([]EntryInfo, 0, len(r.File))
	for _, zf := range r.File {
		entries = append(entries, EntryInfo{
			Name:   zf.Name,
			Size:   zf.UncompressedSize64,
			Method: zf.Method,
			Dir:    zf.FileInfo().IsDir(),
		})
	}
	return entries, nil
}

// Compile-time check that Native implements engine.Archiver.
var _ engine.Archiver = (*Native)(nil)
