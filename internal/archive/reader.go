// Package archive reads SquidNote backup archives and writes the per-note
// .squidnote containers. Both are plain zip files.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Reader gives random access to the members of a zip archive on disk.
type Reader struct {
	path    string
	zr      *zip.ReadCloser
	members map[string]*zip.File
}

// OpenReader opens the archive at path for reading. It returns an error
// wrapping types.ErrArchiveNotFound when the file does not exist and
// types.ErrArchiveCorrupt when it is not a readable zip.
func OpenReader(path string) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrArchiveNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", types.ErrArchiveCorrupt, path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrArchiveCorrupt, path, err)
	}

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		// First entry wins if a damaged archive repeats a name.
		if _, dup := members[f.Name]; !dup {
			members[f.Name] = f
		}
	}
	return &Reader{path: path, zr: zr, members: members}, nil
}

// Path returns the archive path.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the archive file.
func (r *Reader) Close() error {
	return r.zr.Close()
}

// Has reports whether the archive contains the named member.
func (r *Reader) Has(name string) bool {
	_, ok := r.members[name]
	return ok
}

// Size returns the uncompressed size of the named member.
func (r *Reader) Size(name string) (int64, error) {
	f, err := r.member(name)
	if err != nil {
		return 0, err
	}
	return int64(f.UncompressedSize64), nil
}

// Names returns the member names in archive order.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.zr.File))
	for _, f := range r.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Open returns a reader over the decompressed bytes of the named member.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	f, err := r.member(name)
	if err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening member %s: %w", name, err)
	}
	return rc, nil
}

// ExtractMember copies the named member to destPath on the filesystem,
// creating or truncating it.
func (r *Reader) ExtractMember(name, destPath string) error {
	rc, err := r.Open(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", name, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("syncing %s: %w", destPath, err)
	}
	return out.Close()
}

func (r *Reader) member(name string) (*zip.File, error) {
	f, ok := r.members[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMissingMember, name)
	}
	return f, nil
}
