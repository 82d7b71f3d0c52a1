// Package unpack runs one pass over a SquidNote backup: it opens the archive
// and its papyrus.db once, selects notes, then lists, inspects or extracts
// them one at a time in ascending modification order.
package unpack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/laczik/squidnote-unpack/internal/archive"
	"github.com/laczik/squidnote-unpack/internal/notes"
	"github.com/laczik/squidnote-unpack/internal/report"
	"github.com/laczik/squidnote-unpack/internal/slug"
	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/internal/synth"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Mode selects what a run does with the selected notes.
type Mode int

const (
	// ModeSelect only selects notes and reports the count.
	ModeSelect Mode = iota
	// ModeList prints one line per selected note.
	ModeList
	// ModeExtract writes one container per selected note.
	ModeExtract
)

// FileExt is the extension of extracted containers.
const FileExt = ".squidnote"

// Options configures a run.
type Options struct {
	Source          string // Backup archive path.
	Pattern         string // Selection pattern; empty selects all.
	All             bool   // Select every note, ignoring Pattern.
	Mode            Mode
	DryRun          bool
	OutputDir       string
	Locale          string
	StrictDocuments bool
	KeepGoing       bool
	Location        *time.Location // nil means time.Local.
}

// Result summarizes a finished run.
type Result struct {
	Selected []types.Note
	Written  []*synth.Summary
	Failed   []*types.RecordError
}

// Unpacker executes runs.
type Unpacker struct {
	opts Options
	rep  *report.Reporter
}

// New returns an Unpacker for opts.
func New(opts Options, rep *report.Reporter) *Unpacker {
	if rep == nil {
		rep = report.Discard()
	}
	if opts.Locale == "" {
		opts.Locale = types.DefaultLocale
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Unpacker{opts: opts, rep: rep}
}

// source is the backup opened for one run.
type source struct {
	archive *archive.Reader
	store   *sqlite.Store
	tmpDir  string
}

func (s *source) close() {
	if s.store != nil {
		s.store.Close()
	}
	if s.archive != nil {
		s.archive.Close()
	}
	if s.tmpDir != "" {
		os.RemoveAll(s.tmpDir)
	}
}

// openSource opens the archive and a filesystem copy of its database.
func (u *Unpacker) openSource() (*source, error) {
	path := u.opts.Source
	r, err := archive.OpenReader(path)
	if err != nil {
		return nil, &types.SourceError{Path: path, Err: err}
	}
	src := &source{archive: r}
	u.rep.Info("opened backup archive", "path", r.Path())
	u.rep.Debug("archive members", "count", len(r.Names()))

	src.tmpDir, err = os.MkdirTemp("", "squidnote-unpack-*")
	if err != nil {
		src.close()
		return nil, &types.SourceError{Path: path, Err: fmt.Errorf("creating temp directory: %w", err)}
	}

	// SQLite needs a real file, not a zip member.
	dbPath := filepath.Join(src.tmpDir, types.MemberSourceDB)
	if err := r.ExtractMember(types.MemberSourceDB, dbPath); err != nil {
		src.close()
		return nil, &types.SourceError{Path: path, Err: err}
	}
	src.store, err = sqlite.Open(dbPath)
	if err != nil {
		src.close()
		return nil, &types.SourceError{Path: path, Err: err}
	}
	u.rep.Debug("connected to backup database", "path", src.store.Path())
	return src, nil
}

func (u *Unpacker) matcher() (*notes.Matcher, error) {
	if u.opts.All {
		if u.opts.Pattern != "" {
			u.rep.Warn("--all given, ignoring pattern", "pattern", u.opts.Pattern)
		}
		return notes.MatchAll(), nil
	}
	return notes.NewMatcher(u.opts.Pattern)
}

// Run performs the configured run. The pattern is validated before the
// source is opened. With KeepGoing, record failures are collected and the
// run continues; the returned error then joins them.
func (u *Unpacker) Run(ctx context.Context) (*Result, error) {
	m, err := u.matcher()
	if err != nil {
		return nil, err
	}
	if u.opts.DryRun {
		u.rep.Warn("this is a dry run, no files will be written")
	}

	src, err := u.openSource()
	if err != nil {
		return nil, err
	}
	defer src.close()

	selected, err := notes.Select(ctx, src.store, m, u.opts.Location)
	if err != nil {
		return nil, &types.SourceError{Path: u.opts.Source, Err: err}
	}
	res := &Result{Selected: selected}
	u.rep.Info("selected notes", "count", len(selected), "pattern", m.String())

	switch u.opts.Mode {
	case ModeList:
		for i, n := range selected {
			u.rep.ListLine(i+1, len(selected), n)
		}
	case ModeExtract:
		if err := u.extractAll(ctx, src, res); err != nil {
			return res, err
		}
	}

	u.rep.Info("finished")
	return res, nil
}

func (u *Unpacker) extractAll(ctx context.Context, src *source, res *Result) error {
	s := synth.New(u.opts.Locale, u.rep)
	names := newNamer(u.opts.OutputDir)
	total := len(res.Selected)

	var errs []error
	for i, n := range res.Selected {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := u.extractOne(ctx, s, src, names, i+1, total, n)
		if err == nil {
			if sum != nil {
				res.Written = append(res.Written, sum)
			}
			continue
		}

		recErr := &types.RecordError{NoteID: n.ID, Name: n.Name, Err: err}
		if !u.opts.KeepGoing {
			return recErr
		}
		u.rep.Error(recErr.Error())
		res.Failed = append(res.Failed, recErr)
		errs = append(errs, recErr)
	}
	return errors.Join(errs...)
}

func (u *Unpacker) extractOne(ctx context.Context, s *synth.Synthesizer, src *source, names *namer, i, total int, n types.Note) (*synth.Summary, error) {
	closure, err := notes.Resolve(ctx, src.store, n.ID, notes.ResolveOptions{
		StrictDocuments: u.opts.StrictDocuments,
		OnMultipleDocuments: func(noteID string, docs []string) {
			u.rep.Warn("note has several background documents; all pages use the last one",
				"id", noteID, "documents", docs)
		},
	})
	if err != nil {
		return nil, err
	}

	dest := names.next(n)
	if u.opts.DryRun {
		u.rep.Progress(i, total, n, "would extract", dest, 0)
		u.rep.Debug("closure", "pages", len(closure.PageIDs()), "images", len(closure.ImageIDs()),
			"documents", len(closure.DocumentIDs()))
		return nil, nil
	}

	sum, err := s.Synthesize(ctx, dest, n, closure, src.archive)
	if err != nil {
		return nil, err
	}
	u.rep.Progress(i, total, n, "extracted", dest, sum.Bytes)
	return sum, nil
}

// namer derives output paths from note names. A name already used in this
// run gets the first characters of the note ID appended, then a counter
// until the name is free.
type namer struct {
	dir  string
	used map[string]bool
}

func newNamer(dir string) *namer {
	return &namer{dir: dir, used: make(map[string]bool)}
}

// FileName returns the container file name for n, without collision
// handling.
func FileName(n types.Note) string {
	base := slug.Make(n.Name)
	if base == "" {
		base = slug.Make(n.ID)
	}
	if base == "" {
		base = "note"
	}
	return base + FileExt
}

func (nm *namer) next(n types.Note) string {
	name := FileName(n)
	if nm.used[name] {
		short := slug.Make(n.ID)
		if len(short) > 8 {
			short = strings.Trim(short[:8], "-_")
		}
		base := strings.TrimSuffix(name, FileExt)
		if short != "" {
			base += "-" + short
		}
		name = base + FileExt
		for i := 2; nm.used[name]; i++ {
			name = fmt.Sprintf("%s-%d%s", base, i, FileExt)
		}
	}
	nm.used[name] = true
	return filepath.Join(nm.dir, name)
}
