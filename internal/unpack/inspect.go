package unpack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/laczik/squidnote-unpack/internal/notes"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Inspection is the resolved closure of one note together with the state of
// its assets in the backup.
type Inspection struct {
	Note      types.Note
	Pages     int
	ImageRows int
	Images    int
	Documents []DocumentInfo
	Missing   []string // Referenced asset members absent from the backup.
	Warning   string
}

// DocumentInfo describes one background PDF.
type DocumentInfo struct {
	ID        string
	Size      int64
	PageCount int    // 0 when the PDF could not be read.
	Err       string // Why PageCount is unknown.
}

// Inspect resolves every selected note without writing anything.
func (u *Unpacker) Inspect(ctx context.Context) ([]Inspection, error) {
	m, err := u.matcher()
	if err != nil {
		return nil, err
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

	out := make([]Inspection, 0, len(selected))
	for _, n := range selected {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ins, err := u.inspectOne(ctx, src, n)
		if err != nil {
			return out, &types.RecordError{NoteID: n.ID, Name: n.Name, Err: err}
		}
		out = append(out, ins)
	}
	return out, nil
}

func (u *Unpacker) inspectOne(ctx context.Context, src *source, n types.Note) (Inspection, error) {
	ins := Inspection{Note: n}
	closure, err := notes.Resolve(ctx, src.store, n.ID, notes.ResolveOptions{
		OnMultipleDocuments: func(_ string, docs []string) {
			ins.Warning = fmt.Sprintf("%d background documents; pages are attributed to the last", len(docs))
		},
	})
	if err != nil {
		return ins, err
	}

	ins.ImageRows = len(closure.ImageRows())
	for _, id := range closure.PageIDs() {
		ins.Pages++
		if name := types.PagesDir + id + types.PageSuffix; !src.archive.Has(name) {
			ins.Missing = append(ins.Missing, name)
		}
	}
	for _, id := range closure.ImageIDs() {
		ins.Images++
		if name := types.ImagesDir + id; !src.archive.Has(name) {
			ins.Missing = append(ins.Missing, name)
		}
	}
	for _, id := range closure.DocumentIDs() {
		name := types.DocumentsDir + id
		if !src.archive.Has(name) {
			ins.Missing = append(ins.Missing, name)
			continue
		}
		ins.Documents = append(ins.Documents, u.inspectDocument(src, id, name))
	}
	return ins, nil
}

// inspectDocument counts the pages of a background PDF. Unreadable PDFs are
// reported, not fatal.
func (u *Unpacker) inspectDocument(src *source, id, name string) DocumentInfo {
	info := DocumentInfo{ID: id}
	info.Size, _ = src.archive.Size(name)

	path := filepath.Join(src.tmpDir, "doc-"+filepath.Base(id)+".pdf")
	if err := src.archive.ExtractMember(name, path); err != nil {
		info.Err = err.Error()
		return info
	}
	defer os.Remove(path)

	count, err := api.PageCountFile(path)
	if err != nil {
		u.rep.Debug("could not read background PDF", "member", name, "error", err)
		info.Err = err.Error()
		return info
	}
	info.PageCount = count
	return info
}
