package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laczik/squidnote-unpack/pkg/types"
)

var fixedTime = time.Date(2023, 7, 22, 4, 26, 40, 0, time.UTC)

// writeZip creates a zip at path holding the given members.
func writeZip(t *testing.T, path string, members map[string][]byte) {
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

// readZip returns every member of the zip at path.
func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = data
	}
	return out
}

func TestOpenReader_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := OpenReader(filepath.Join(dir, "nope.zip"))
		assert.ErrorIs(t, err, types.ErrArchiveNotFound)
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.zip")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0o644))
		_, err := OpenReader(path)
		assert.ErrorIs(t, err, types.ErrArchiveCorrupt)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := OpenReader(dir)
		assert.ErrorIs(t, err, types.ErrArchiveCorrupt)
	})
}

func TestReader_ExtractMember(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.zip")
	writeZip(t, src, map[string][]byte{
		"papyrus.db":   []byte("database bytes"),
		"data/imgs/i1": []byte("image"),
	})

	r, err := OpenReader(src)
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Has("papyrus.db"))
	assert.False(t, r.Has("note.db"))
	assert.Len(t, r.Names(), 2)

	size, err := r.Size("data/imgs/i1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	dest := filepath.Join(dir, "out", "papyrus.db")
	require.NoError(t, r.ExtractMember("papyrus.db", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "database bytes", string(got))

	err = r.ExtractMember("absent.db", filepath.Join(dir, "absent.db"))
	assert.ErrorIs(t, err, types.ErrMissingMember)
}

func TestWriter_CommitAndDuplicate(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "note.squidnote")

	w, err := Create(dest, fixedTime)
	require.NoError(t, err)
	defer w.Abort()

	require.NoError(t, w.WriteMember("info.json", []byte(`{"id":"x"}`)))
	require.NoError(t, w.WriteMember("data/pages/.metadata", nil))
	assert.ErrorIs(t, w.WriteMember("info.json", []byte("again")), types.ErrDuplicateMember)

	scratch := filepath.Join(dir, "scratch.db")
	require.NoError(t, os.WriteFile(scratch, []byte("sqlite"), 0o644))
	require.NoError(t, w.WriteFile("note.db", scratch))

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "destination must not exist before Commit")

	require.NoError(t, w.Commit())
	assert.Equal(t, int64(len(`{"id":"x"}`)+len("sqlite")), w.BytesWritten())

	members := readZip(t, dest)
	assert.Equal(t, `{"id":"x"}`, string(members["info.json"]))
	assert.Equal(t, "sqlite", string(members["note.db"]))
	assert.Empty(t, members["data/pages/.metadata"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestWriter_AbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "partial.squidnote")

	w, err := Create(dest, fixedTime)
	require.NoError(t, err)
	require.NoError(t, w.WriteMember("info.json", []byte("{}")))
	w.Abort()
	w.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyMember(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.zip")
	payload := bytes.Repeat([]byte("page-data "), 1000)
	writeZip(t, src, map[string][]byte{
		"data/pages/p1.page": payload,
	})

	r, err := OpenReader(src)
	require.NoError(t, err)
	defer r.Close()

	dest := filepath.Join(dir, "out.squidnote")
	w, err := Create(dest, fixedTime)
	require.NoError(t, err)
	defer w.Abort()

	n, err := CopyMember(r, "data/pages/p1.page", w, "data/pages/p1.page")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	_, err = CopyMember(r, "data/pages/p1.page", w, "data/pages/p1.page")
	assert.ErrorIs(t, err, types.ErrDuplicateMember)

	_, err = CopyMember(r, "data/pages/p1.page", w, "renamed/p1.page")
	require.NoError(t, err)

	_, err = CopyMember(r, "data/pages/missing.page", w, "data/pages/missing.page")
	assert.ErrorIs(t, err, types.ErrMissingMember)

	require.NoError(t, w.Commit())

	members := readZip(t, dest)
	assert.Equal(t, payload, members["data/pages/p1.page"])
	assert.Equal(t, payload, members["renamed/p1.page"])
	assert.NotContains(t, members, "data/pages/missing.page")
}

func TestWriter_Deterministic(t *testing.T) {
	dir := t.TempDir()
	build := func(name string) []byte {
		dest := filepath.Join(dir, name)
		w, err := Create(dest, fixedTime)
		require.NoError(t, err)
		require.NoError(t, w.WriteMember("info.json", []byte(`{"id":"same"}`)))
		require.NoError(t, w.WriteMember("data/imgs/.metadata", nil))
		require.NoError(t, w.Commit())
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, build("a.squidnote"), build("b.squidnote"))
}
