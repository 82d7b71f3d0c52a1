// Package fixture builds small SquidNote backup archives for tests: a real
// zip holding a real papyrus.db plus page, image and PDF members.
package fixture

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// sourceSchema is the subset of the SquidNote backup database read by the
// extractor.
var sourceSchema = []string{
	`CREATE TABLE note(
    id TEXT PRIMARY KEY NOT NULL,
    name TEXT,
    created INTEGER NOT NULL,
    modified INTEGER NOT NULL
)`,
	`CREATE TABLE page(
    id TEXT PRIMARY KEY NOT NULL,
    noteId TEXT NOT NULL,
    created INTEGER NOT NULL,
    modified INTEGER NOT NULL,
    pageNum INTEGER NOT NULL,
    documentId TEXT
)`,
	`CREATE TABLE image(imageId TEXT NOT NULL, pageId TEXT NOT NULL, toDelete INTEGER NOT NULL)`,
	`CREATE TABLE document(documentId TEXT NOT NULL, noteId TEXT NOT NULL, encryptedPassword TEXT)`,
}

// Note describes one note to put in a backup.
type Note struct {
	ID       string
	Name     string
	Modified int64
	Pages    []Page
	// Documents lists document IDs; each becomes one document row per
	// entry, so repeating an ID repeats the row.
	Documents []string
}

// Page describes one page and the images placed on it.
type Page struct {
	ID     string
	Images []string
}

// Backup collects notes and extra members, then writes them out.
type Backup struct {
	Notes []Note
	// Omit lists asset members to leave out of the archive.
	Omit map[string]bool
	// Extra holds additional raw members.
	Extra map[string][]byte
	// DocumentData overrides the bytes stored for a document ID.
	DocumentData map[string][]byte
}

// NewID returns a random note, page or asset ID.
func NewID() string {
	return uuid.NewString()
}

// PageData returns the bytes stored for a page asset.
func PageData(id string) []byte { return []byte("page:" + id) }

// ImageData returns the bytes stored for an image asset.
func ImageData(id string) []byte { return []byte("image:" + id) }

// DocumentData returns the default bytes stored for a document asset.
func DocumentData(id string) []byte { return []byte("%PDF-1.4 doc:" + id) }

// Write builds papyrus.db and the backup zip in a temp dir and returns the
// zip path. Empty note, page, image and document IDs are first replaced in
// place by NewID, so callers can read the generated IDs back from b.
func (b *Backup) Write(t *testing.T) string {
	t.Helper()
	b.assignIDs()
	dir := t.TempDir()
	ctx := context.Background()

	dbPath := filepath.Join(dir, types.MemberSourceDB)
	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.CreateSchema(ctx, sourceSchema))

	members := map[string][]byte{}
	for _, n := range b.Notes {
		var name any = n.Name
		if n.Name == "" {
			name = nil
		}
		require.NoError(t, store.Exec(ctx,
			`INSERT INTO note (id, name, created, modified) VALUES (?, ?, ?, ?)`,
			n.ID, name, n.Modified, n.Modified))

		for _, doc := range n.Documents {
			require.NoError(t, store.Exec(ctx,
				`INSERT INTO document (documentId, noteId) VALUES (?, ?)`, doc, n.ID))
			data := DocumentData(doc)
			if custom, ok := b.DocumentData[doc]; ok {
				data = custom
			}
			members[types.DocumentsDir+doc] = data
		}

		for i, p := range n.Pages {
			require.NoError(t, store.Exec(ctx,
				`INSERT INTO page (id, noteId, created, modified, pageNum) VALUES (?, ?, ?, ?, ?)`,
				p.ID, n.ID, n.Modified-int64(1000*(i+1)), n.Modified, int64(i)))
			members[types.PagesDir+p.ID+types.PageSuffix] = PageData(p.ID)

			for _, img := range p.Images {
				require.NoError(t, store.Exec(ctx,
					`INSERT INTO image (imageId, pageId, toDelete) VALUES (?, ?, ?)`, img, p.ID, int64(0)))
				members[types.ImagesDir+img] = ImageData(img)
			}
		}
	}
	require.NoError(t, store.Commit(ctx))
	require.NoError(t, store.Close())

	db, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	members[types.MemberSourceDB] = db
	for name, data := range b.Extra {
		members[name] = data
	}
	for name := range b.Omit {
		delete(members, name)
	}

	zipPath := filepath.Join(dir, "backup.snbak")
	WriteZip(t, zipPath, members)
	return zipPath
}

func (b *Backup) assignIDs() {
	fill := func(id *string) {
		if *id == "" {
			*id = NewID()
		}
	}
	for i := range b.Notes {
		n := &b.Notes[i]
		fill(&n.ID)
		for j := range n.Documents {
			fill(&n.Documents[j])
		}
		for j := range n.Pages {
			p := &n.Pages[j]
			fill(&p.ID)
			for k := range p.Images {
				fill(&p.Images[k])
			}
		}
	}
}

// WriteZip writes members into a new zip at path.
func WriteZip(t *testing.T, path string, members map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
