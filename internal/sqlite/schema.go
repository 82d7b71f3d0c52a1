package sqlite

// DDL for the note.db embedded in every extracted .squidnote container. The
// tables mirror the SquidNote per-note database; folder and manifest stay
// empty but must exist.
const (
	createAndroidMetadata = `CREATE TABLE android_metadata (locale TEXT)`

	createDocument = `CREATE TABLE document(
    documentId TEXT NOT NULL,
    noteId TEXT NOT NULL,
    encryptedPassword TEXT
)`

	createFolder = `CREATE TABLE folder(
    id TEXT PRIMARY KEY NOT NULL,
    name TEXT NOT NULL,
    created INTEGER NOT NULL,
    trashed INTEGER,
    parentId TEXT
)`

	createImage = `CREATE TABLE image(
    imageId TEXT NOT NULL,
    pageId TEXT NOT NULL,
    toDelete INTEGER NOT NULL
)`

	createManifest = `CREATE TABLE manifest(revision INTEGER NOT NULL)`

	createNote = `CREATE TABLE note(
    id TEXT PRIMARY KEY NOT NULL,
    name TEXT NOT NULL,
    created INTEGER NOT NULL,
    modified INTEGER NOT NULL,
    starred INTEGER NOT NULL DEFAULT 0,
    uiMode INTEGER NOT NULL DEFAULT 0,
    currentPageNum INTEGER NOT NULL DEFAULT 0,
    passwordHash TEXT,
    version INTEGER NOT NULL DEFAULT 0,
    trashed INTEGER,
    parentId TEXT,
    revision INTEGER NOT NULL DEFAULT 0
)`

	createPage = `CREATE TABLE page(
    id TEXT PRIMARY KEY NOT NULL,
    noteId TEXT NOT NULL,
    created INTEGER NOT NULL,
    modified INTEGER NOT NULL,
    pageNum INTEGER NOT NULL,
    offsetX REAL NOT NULL DEFAULT 0,
    offsetY REAL NOT NULL DEFAULT 0,
    zoom REAL NOT NULL DEFAULT 1,
    fitMode INTEGER NOT NULL DEFAULT 0,
    documentId TEXT
)`
)

// OutputSchema lists the CREATE TABLE statements of note.db. The order is
// fixed so repeated extractions produce identical files.
var OutputSchema = []string{
	createAndroidMetadata,
	createDocument,
	createFolder,
	createImage,
	createManifest,
	createNote,
	createPage,
}

// OutputTables names the tables created by OutputSchema.
var OutputTables = []string{
	"android_metadata",
	"document",
	"folder",
	"image",
	"manifest",
	"note",
	"page",
}
