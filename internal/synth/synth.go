// Package synth writes one extracted note as a self-contained .squidnote
// container: info.json, a freshly built note.db and the note's assets copied
// from the backup.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/laczik/squidnote-unpack/internal/archive"
	"github.com/laczik/squidnote-unpack/internal/report"
	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Synthesizer builds output containers. The zero value is not usable; use
// New.
type Synthesizer struct {
	locale string
	rep    *report.Reporter
	tmpDir string
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTempDir sets the directory that holds scratch databases. The default
// is os.TempDir().
func WithTempDir(dir string) Option {
	return func(s *Synthesizer) { s.tmpDir = dir }
}

// New returns a Synthesizer that writes locale into android_metadata.
func New(locale string, rep *report.Reporter, opts ...Option) *Synthesizer {
	if rep == nil {
		rep = report.Discard()
	}
	s := &Synthesizer{locale: locale, rep: rep}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary describes one written container.
type Summary struct {
	Path      string
	Pages     int
	Images    int
	Documents int
	Skipped   []string // Asset members absent from the backup.
	Bytes     int64    // Uncompressed bytes written.
}

// assetCategory is one data/ directory of a container.
type assetCategory struct {
	dir      string
	suffix   string
	required bool
}

var (
	pagesCategory     = assetCategory{dir: types.PagesDir, suffix: types.PageSuffix, required: true}
	imagesCategory    = assetCategory{dir: types.ImagesDir}
	documentsCategory = assetCategory{dir: types.DocumentsDir}
)

// Synthesize writes the container for note to destPath. src is the backup
// the assets are copied from. On error nothing is left at destPath.
func (s *Synthesizer) Synthesize(ctx context.Context, destPath string, note types.Note, closure *types.Closure, src *archive.Reader) (*Summary, error) {
	w, err := archive.Create(destPath, time.UnixMilli(note.Modified).UTC())
	if err != nil {
		return nil, err
	}
	defer w.Abort()

	info, err := encodeInfo(note.Info())
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", types.MemberInfo, err)
	}
	if err := w.WriteMember(types.MemberInfo, info); err != nil {
		return nil, err
	}

	scratchDir, err := os.MkdirTemp(s.tmpDir, "squidnote-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	dbPath := filepath.Join(scratchDir, types.MemberNoteDB)
	if err := s.buildNoteDB(ctx, dbPath, note, closure); err != nil {
		return nil, fmt.Errorf("building %s: %w", types.MemberNoteDB, err)
	}
	if err := w.WriteFile(types.MemberNoteDB, dbPath); err != nil {
		return nil, err
	}

	sum := &Summary{Path: destPath}
	if sum.Pages, err = s.copyAssets(ctx, src, w, pagesCategory, closure.PageIDs(), sum); err != nil {
		return nil, err
	}
	if sum.Images, err = s.copyAssets(ctx, src, w, imagesCategory, closure.ImageIDs(), sum); err != nil {
		return nil, err
	}
	if sum.Documents, err = s.copyAssets(ctx, src, w, documentsCategory, closure.DocumentIDs(), sum); err != nil {
		return nil, err
	}

	if err := w.Commit(); err != nil {
		return nil, err
	}
	sum.Bytes = w.BytesWritten()
	return sum, nil
}

// buildNoteDB creates the scratch note.db at path and fills it from closure.
// The store is committed and closed before returning.
func (s *Synthesizer) buildNoteDB(ctx context.Context, path string, note types.Note, closure *types.Closure) (err error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := store.CreateSchema(ctx, sqlite.OutputSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := store.Exec(ctx, sqlite.InsertLocale, s.locale); err != nil {
		return fmt.Errorf("inserting locale: %w", err)
	}
	// The backup path does not carry the original creation time.
	if err := store.Exec(ctx, sqlite.InsertNote, note.ID, note.Name, note.Modified, note.Modified); err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	if err := store.ExecMany(ctx, sqlite.InsertDocument, documentParams(closure.Documents)); err != nil {
		return fmt.Errorf("inserting documents: %w", err)
	}
	if err := store.ExecMany(ctx, sqlite.InsertPage, pageParams(closure.Pages)); err != nil {
		return fmt.Errorf("inserting pages: %w", err)
	}
	if err := store.ExecMany(ctx, sqlite.InsertImage, imageParams(closure.ImageRows())); err != nil {
		return fmt.Errorf("inserting images: %w", err)
	}
	return store.Commit(ctx)
}

// copyAssets writes the category marker and copies each asset. Missing
// optional assets are recorded in sum.Skipped.
func (s *Synthesizer) copyAssets(ctx context.Context, src *archive.Reader, w *archive.Writer, cat assetCategory, ids []string, sum *Summary) (int, error) {
	if err := w.WriteMember(cat.dir+types.MemberMarker, nil); err != nil {
		return 0, err
	}

	copied := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		name := cat.dir + id + cat.suffix
		n, err := archive.CopyMember(src, name, w, name)
		if err != nil {
			if errors.Is(err, types.ErrMissingMember) && !cat.required {
				s.rep.Warn("asset missing from backup, skipped", "member", name)
				sum.Skipped = append(sum.Skipped, name)
				continue
			}
			return copied, err
		}
		s.rep.Debug("copied asset", "member", name, "bytes", n)
		copied++
	}
	s.rep.Debug(fmt.Sprintf("written %d file(s) to %q", copied, cat.dir))
	return copied, nil
}

// encodeInfo renders info.json on a single line with names kept literal
// (no \u0026 style escaping of &, < and >).
func encodeInfo(info types.Info) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(info); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func documentParams(docs []types.Document) [][]any {
	out := make([][]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, []any{d.DocumentID, d.NoteID})
	}
	return out
}

func pageParams(pages []types.Page) [][]any {
	out := make([][]any, 0, len(pages))
	for _, p := range pages {
		// A note without a document gets '' rather than NULL.
		out = append(out, []any{p.ID, p.NoteID, p.Created, p.Modified, p.PageNum, p.DocumentID})
	}
	return out
}

func imageParams(images []types.Image) [][]any {
	out := make([][]any, 0, len(images))
	for _, img := range images {
		out = append(out, []any{img.ImageID, img.PageID, img.ToDelete})
	}
	return out
}
