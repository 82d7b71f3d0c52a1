package sqlite

// Reads against the backup's papyrus.db. Identifiers are always bound as
// parameters.
const (
	SelectNotes     = `SELECT id, name, modified FROM note ORDER BY modified ASC`
	SelectDocuments = `SELECT documentId, noteId FROM document WHERE noteId = ?`
	SelectPages     = `SELECT id, noteId, created, modified, pageNum FROM page WHERE noteId = ?`
	SelectImages    = `SELECT imageId, pageId, toDelete FROM image WHERE pageId = ?`
)

// Writes into the scratch note.db.
const (
	InsertLocale   = `INSERT INTO android_metadata (locale) VALUES (?)`
	InsertNote     = `INSERT INTO note (id, name, created, modified) VALUES (?, ?, ?, ?)`
	InsertDocument = `INSERT INTO document (documentId, noteId) VALUES (?, ?)`
	InsertPage     = `INSERT INTO page (id, noteId, created, modified, pageNum, documentId) VALUES (?, ?, ?, ?, ?, ?)`
	InsertImage    = `INSERT INTO image (imageId, pageId, toDelete) VALUES (?, ?, ?)`
)
