package notes

import (
	"context"
	"fmt"

	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// ResolveOptions tunes how Resolve handles notes with several background
// documents.
type ResolveOptions struct {
	// StrictDocuments makes Resolve fail with types.ErrMultipleDocuments
	// when a note references more than one distinct document.
	StrictDocuments bool
	// OnMultipleDocuments, if set, is called with the distinct document IDs
	// when a note references more than one and StrictDocuments is false.
	OnMultipleDocuments func(noteID string, documentIDs []string)
}

// Resolve collects the document, page and image rows owned by noteID.
//
// Pages carry the last document ID returned for the note. The backup does
// not record which page uses which background, so a note with several
// documents attributes all pages to one of them; see ResolveOptions.
func Resolve(ctx context.Context, store *sqlite.Store, noteID string, opts ResolveOptions) (*types.Closure, error) {
	closure := &types.Closure{ImagesByPage: make(map[string][]types.Image)}

	docRows, err := store.Query(ctx, sqlite.SelectDocuments, noteID)
	if err != nil {
		return nil, fmt.Errorf("querying documents of %s: %w", noteID, err)
	}
	var documentID string
	for _, row := range docRows {
		doc := types.Document{DocumentID: row.String(0), NoteID: row.String(1)}
		closure.Documents = append(closure.Documents, doc)
		documentID = doc.DocumentID
	}

	if ids := closure.DocumentIDs(); len(ids) > 1 {
		if opts.StrictDocuments {
			return nil, fmt.Errorf("%w: %s references %v", types.ErrMultipleDocuments, noteID, ids)
		}
		if opts.OnMultipleDocuments != nil {
			opts.OnMultipleDocuments(noteID, ids)
		}
	}

	pageRows, err := store.Query(ctx, sqlite.SelectPages, noteID)
	if err != nil {
		return nil, fmt.Errorf("querying pages of %s: %w", noteID, err)
	}
	for _, row := range pageRows {
		page, err := scanPage(row)
		if err != nil {
			return nil, fmt.Errorf("page of %s: %w", noteID, err)
		}
		page.DocumentID = documentID
		closure.Pages = append(closure.Pages, page)
	}

	for _, page := range closure.Pages {
		if _, seen := closure.ImagesByPage[page.ID]; seen {
			continue
		}
		imgRows, err := store.Query(ctx, sqlite.SelectImages, page.ID)
		if err != nil {
			return nil, fmt.Errorf("querying images of page %s: %w", page.ID, err)
		}
		images := make([]types.Image, 0, len(imgRows))
		for _, row := range imgRows {
			toDelete, err := row.Int64(2)
			if err != nil {
				return nil, fmt.Errorf("image %s toDelete: %w", row.String(0), err)
			}
			images = append(images, types.Image{
				ImageID:  row.String(0),
				PageID:   row.String(1),
				ToDelete: toDelete,
			})
		}
		closure.ImagesByPage[page.ID] = images
	}

	return closure, nil
}

func scanPage(row sqlite.Row) (types.Page, error) {
	p := types.Page{ID: row.String(0), NoteID: row.String(1)}
	var err error
	if p.Created, err = row.Int64(2); err != nil {
		return p, fmt.Errorf("%s created: %w", p.ID, err)
	}
	if p.Modified, err = row.Int64(3); err != nil {
		return p, fmt.Errorf("%s modified: %w", p.ID, err)
	}
	if p.PageNum, err = row.Int64(4); err != nil {
		return p, fmt.Errorf("%s pageNum: %w", p.ID, err)
	}
	return p, nil
}
