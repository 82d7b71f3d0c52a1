package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Writer builds a new zip archive. Members are staged in a temp file next to
// the destination; the destination only appears on Commit. Every member name
// may be written once.
type Writer struct {
	dest     string
	tmp      *os.File
	zw       *zip.Writer
	modified time.Time
	written  map[string]bool
	bytes    int64
	done     bool
}

// Create starts a new archive that will be written to path. Member headers
// carry the modified timestamp so identical input produces identical output.
func Create(path string, modified time.Time) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &Writer{
		dest:     path,
		tmp:      tmp,
		zw:       zip.NewWriter(tmp),
		modified: modified,
		written:  make(map[string]bool),
	}, nil
}

// Path returns the destination path.
func (w *Writer) Path() string {
	return w.dest
}

// BytesWritten returns the uncompressed member bytes written so far.
func (w *Writer) BytesWritten() int64 {
	return w.bytes
}

func (w *Writer) claim(name string) error {
	if w.done {
		return fmt.Errorf("writing %s: archive already closed", name)
	}
	if w.written[name] {
		return fmt.Errorf("%w: %s", types.ErrDuplicateMember, name)
	}
	w.written[name] = true
	return nil
}

func (w *Writer) create(name string) (io.Writer, error) {
	if err := w.claim(name); err != nil {
		return nil, err
	}
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: w.modified,
	}
	dst, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("creating member %s: %w", name, err)
	}
	return dst, nil
}

// WriteMember writes data as the named member.
func (w *Writer) WriteMember(name string, data []byte) error {
	dst, err := w.create(name)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, bytes.NewReader(data))
	w.bytes += n
	if err != nil {
		return fmt.Errorf("writing member %s: %w", name, err)
	}
	return nil
}

// WriteFile streams the file at path into the named member.
func (w *Writer) WriteFile(name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer src.Close()

	dst, err := w.create(name)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, src)
	w.bytes += n
	if err != nil {
		return fmt.Errorf("writing member %s: %w", name, err)
	}
	return nil
}

// Commit finishes the archive and moves it into place.
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	tmpName := w.tmp.Name()

	if err := w.zw.Close(); err != nil {
		w.tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("finishing archive: %w", err)
	}
	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing archive: %w", err)
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := os.Rename(tmpName, w.dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming archive into place: %w", err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Commit, so callers
// can defer it unconditionally.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.zw.Close()
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
