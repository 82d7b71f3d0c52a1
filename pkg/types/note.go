package types

import "sort"

// Archive member paths shared by the backup and the extracted containers.
const (
	MemberSourceDB = "papyrus.db"
	MemberNoteDB   = "note.db"
	MemberInfo     = "info.json"
	MemberMarker   = ".metadata"

	PagesDir     = "data/pages/"
	ImagesDir    = "data/imgs/"
	DocumentsDir = "data/docs/"

	PageSuffix = ".page"
)

// InfoVersion is the format marker written into info.json.
const InfoVersion = 1

// Note is one selectable record from the note table of a backup.
type Note struct {
	ID           string // Stable note identifier.
	Name         string // Display name; synthesized from Modified when empty at source.
	Modified     int64  // Milliseconds since the Unix epoch.
	ModifiedText string // Modified formatted as "2006-01-02 15:04:05".
}

// Info is the payload of the info.json member of an extracted note.
type Info struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Modified int64  `json:"modified"`
	Version  int    `json:"version"`
}

// Info returns the info.json payload for n.
func (n Note) Info() Info {
	return Info{ID: n.ID, Name: n.Name, Modified: n.Modified, Version: InfoVersion}
}

// Page is one row of the page table.
type Page struct {
	ID         string
	NoteID     string
	Created    int64
	Modified   int64
	PageNum    int64
	DocumentID string // Background document; empty when the note has none.
}

// Image is one row of the image table. ToDelete is copied through unchanged.
type Image struct {
	ImageID  string
	PageID   string
	ToDelete int64
}

// Document is one row of the document table (a background PDF).
type Document struct {
	DocumentID string
	NoteID     string
}

// Closure is every row and asset reference owned by one note.
type Closure struct {
	Documents    []Document         // Document rows in query order.
	Pages        []Page             // Page rows in query order.
	ImagesByPage map[string][]Image // Image rows keyed by page ID.
}

// ImageRows returns all image rows, grouped by page in page order. An image
// referenced from two pages appears once per page.
func (c *Closure) ImageRows() []Image {
	var rows []Image
	for _, p := range c.Pages {
		rows = append(rows, c.ImagesByPage[p.ID]...)
	}
	return rows
}

// PageIDs returns the distinct page IDs, sorted.
func (c *Closure) PageIDs() []string {
	ids := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		ids = append(ids, p.ID)
	}
	return distinct(ids)
}

// ImageIDs returns the distinct image IDs across all pages, sorted.
func (c *Closure) ImageIDs() []string {
	var ids []string
	for _, img := range c.ImageRows() {
		ids = append(ids, img.ImageID)
	}
	return distinct(ids)
}

// DocumentIDs returns the distinct document IDs, sorted.
func (c *Closure) DocumentIDs() []string {
	ids := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		ids = append(ids, d.DocumentID)
	}
	return distinct(ids)
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
