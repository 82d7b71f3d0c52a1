package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laczik/squidnote-unpack/internal/fixture"
	"github.com/laczik/squidnote-unpack/internal/paths"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// isolate points the config directory at an empty temp dir and clears the
// environment overrides, returning the config directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.EnvConfigDir, dir)
	for _, key := range []string{"OUTPUT_DIR", "LOCALE", "STRICT_DOCUMENTS", "KEEP_GOING", "UTC"} {
		t.Setenv(envPrefix+"_"+key, "")
		os.Unsetenv(envPrefix + "_" + key)
	}
	return dir
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func backup(t *testing.T) string {
	t.Helper()
	return (&fixture.Backup{Notes: []fixture.Note{
		{ID: "aaaa0001", Name: "", Modified: 1690000000000,
			Pages: []fixture.Page{{ID: "p1", Images: []string{"i1"}}}},
		{ID: "bbbb0002", Name: "Shopping list", Modified: 1000,
			Documents: []string{"d2"},
			Pages:     []fixture.Page{{ID: "p2"}, {ID: "p3", Images: []string{"i1"}}}},
	}}).Write(t)
}

func files(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestList(t *testing.T) {
	isolate(t)
	src := backup(t)

	r := runCLI(t, "-f", src, "-l", "--utc")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Equal(t,
		"0001/0002 bbbb0002 \"1970-01-01 00:00:01\" \"Shopping list\"\n"+
			"0002/0002 aaaa0001 \"2023-07-22 04:26:40\" \"Untitled_20230722-042640\"\n",
		r.stdout)
	assert.Contains(t, r.stderr, "input file")
}

func TestList_Quiet(t *testing.T) {
	isolate(t)
	src := backup(t)

	r := runCLI(t, "-f", src, "-l", "-q", "--utc", "-r", "Shop")
	require.Equal(t, exitSuccess, r.code)
	assert.Equal(t, "0001/0001 bbbb0002 \"1970-01-01 00:00:01\" \"Shopping list\"\n", r.stdout)
	assert.Empty(t, r.stderr)
}

func TestList_TakesPrecedenceOverExtract(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "list then extract", args: []string{"-l", "-x"}},
		{name: "extract then list", args: []string{"-x", "-l"}},
		{name: "list and all", args: []string{"-l", "-a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			src := backup(t)
			out := filepath.Join(t.TempDir(), "notes")

			args := append([]string{"-f", src, "--utc", "-o", out}, tt.args...)
			r := runCLI(t, args...)
			require.Equal(t, exitSuccess, r.code, r.stderr)
			assert.Contains(t, r.stdout, "0002/0002 aaaa0001")
			assert.NoDirExists(t, out)
			assert.NotContains(t, r.stderr, "extracted")
		})
	}
}

func TestExtract(t *testing.T) {
	isolate(t)
	src := backup(t)
	out := filepath.Join(t.TempDir(), "notes")

	r := runCLI(t, "-f", src, "-x", "--utc", "-o", out)
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Equal(t, []string{"Shopping_list.squidnote", "Untitled_20230722-042640.squidnote"}, files(t, out))
	assert.Contains(t, r.stderr, "0002/0002 extracted")
}

func TestExtract_AllIgnoresPattern(t *testing.T) {
	isolate(t)
	src := backup(t)
	out := t.TempDir()

	r := runCLI(t, "-f", src, "-a", "-r", "nothing-matches", "--utc", "-o", out)
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Len(t, files(t, out), 2)
}

func TestExtract_DryRun(t *testing.T) {
	isolate(t)
	src := backup(t)
	out := filepath.Join(t.TempDir(), "notes")

	r := runCLI(t, "-f", src, "-x", "-n", "-o", out)
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.NoDirExists(t, out)
	assert.Contains(t, r.stderr, "dry run")
	assert.Contains(t, r.stderr, "would extract")
}

func TestExtract_OutputDirFromConfig(t *testing.T) {
	configDir := isolate(t)
	src := backup(t)
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"),
		[]byte(fmt.Sprintf("output_dir: %s\nutc: true\n", out)), 0o644))

	r := runCLI(t, "-f", src, "-x")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Equal(t, []string{"Shopping_list.squidnote", "Untitled_20230722-042640.squidnote"}, files(t, out))
}

func TestExtract_RecordFailure(t *testing.T) {
	isolate(t)
	b := &fixture.Backup{
		Notes: []fixture.Note{
			{ID: "n1", Name: "broken", Modified: 1, Pages: []fixture.Page{{ID: "gone"}}},
			{ID: "n2", Name: "fine", Modified: 2, Pages: []fixture.Page{{ID: "here"}}},
		},
		Omit: map[string]bool{"data/pages/gone.page": true},
	}
	src := b.Write(t)

	out := t.TempDir()
	r := runCLI(t, "-f", src, "-x", "-o", out)
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "could not extract record n1")
	assert.Empty(t, files(t, out))

	out = t.TempDir()
	r = runCLI(t, "-f", src, "-x", "--keep-going", "-o", out)
	assert.Equal(t, exitSysError, r.code)
	assert.Equal(t, []string{"fine.squidnote"}, files(t, out))
}

func TestUserErrors(t *testing.T) {
	isolate(t)
	src := backup(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing filename", args: []string{"-l"}, wantErr: `required flag "filename" not set`},
		{name: "bad pattern", args: []string{"-f", "/does/not/exist", "-r", "(", "-l"}, wantErr: "invalid selection pattern"},
		{name: "unknown flag", args: []string{"-f", src, "--bogus"}, wantErr: "unknown flag"},
		{name: "quiet and verbose", args: []string{"-f", src, "-q", "--verbose"}, wantErr: "mutually exclusive"},
		{name: "positional args", args: []string{"-f", src, "extra"}, wantErr: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, tt.args...)
			assert.Equal(t, exitUserError, r.code)
			assert.Contains(t, r.stderr, tt.wantErr)
		})
	}
}

func TestInvalidLocale(t *testing.T) {
	isolate(t)
	t.Setenv("SQUIDNOTE_LOCALE", "english")

	r := runCLI(t, "-f", backup(t), "-l")
	assert.Equal(t, exitUserError, r.code)
	assert.Contains(t, r.stderr, "locale must look like")
}

func TestMissingSource(t *testing.T) {
	isolate(t)

	r := runCLI(t, "-f", filepath.Join(t.TempDir(), "nope.zip"), "-l")
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "could not open source")
}

func TestConfigInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	r := runCLI(t, "config", "init", "--config-dir", dir)
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Wrote ")

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "locale: en_GB")

	r = runCLI(t, "config", "init", "--config-dir", dir)
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "already exists")
}

func TestConfigShow(t *testing.T) {
	configDir := isolate(t)

	r := runCLI(t, "config", "show")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "# config file: none, using defaults")
	assert.Contains(t, r.stdout, "locale: en_GB")

	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"),
		[]byte("locale: fr_FR\nkeep_going: true\n"), 0o644))
	r = runCLI(t, "config", "show")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "config.yaml")
	assert.Contains(t, r.stdout, "locale: fr_FR")
	assert.Contains(t, r.stdout, "keep_going: true")

	t.Setenv("SQUIDNOTE_LOCALE", "de_DE")
	r = runCLI(t, "config", "show")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "locale: de_DE")
}

func TestConfigNeverCreatedImplicitly(t *testing.T) {
	parent := t.TempDir()
	configDir := filepath.Join(parent, "cfg")
	t.Setenv(paths.EnvConfigDir, configDir)

	r := runCLI(t, "-f", backup(t), "-x", "-n")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.NoDirExists(t, configDir)
}

func TestVersion(t *testing.T) {
	r := runCLI(t, "version")
	require.Equal(t, exitSuccess, r.code)
	assert.True(t, strings.HasPrefix(r.stdout, "squidnote-unpack v"+Version+"\n"))
	assert.Contains(t, r.stdout, "module: github.com/laczik/squidnote-unpack")
	assert.Contains(t, r.stdout, "squidnote2xopp")

	r = runCLI(t, "--version")
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, Version)
}

func TestInspect(t *testing.T) {
	isolate(t)
	b := &fixture.Backup{
		Notes: []fixture.Note{
			{ID: "n1", Name: "sketch", Modified: 1,
				Documents: []string{"d1"},
				Pages:     []fixture.Page{{ID: "p1", Images: []string{"i1", "i2"}}}},
		},
		Omit: map[string]bool{"data/imgs/i2": true},
	}

	r := runCLI(t, "inspect", "-f", b.Write(t), "--utc")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, `0001/0001 n1 "1970-01-01 00:00:00" "sketch"`)
	assert.Contains(t, r.stdout, "pages: 1  images: 2 (2 rows)  documents: 1")
	assert.Contains(t, r.stdout, "document d1:")
	assert.Contains(t, r.stdout, "unreadable:")
	assert.Contains(t, r.stdout, "missing: data/imgs/i2")
}

func TestCheckCapabilities(t *testing.T) {
	assert.NoError(t, checkCapabilities())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "explicit user error", err: userErrorf("bad flag"), want: exitUserError},
		{name: "pattern", err: fmt.Errorf("%w: x", types.ErrInvalidPattern), want: exitUserError},
		{name: "locale", err: types.ErrLocaleEmpty, want: exitUserError},
		{name: "source", err: &types.SourceError{Path: "x", Err: types.ErrArchiveNotFound}, want: exitSysError},
		{name: "record", err: &types.RecordError{NoteID: "n", Err: types.ErrMissingMember}, want: exitSysError},
		{name: "dependency", err: &types.MissingDependencyError{Name: "sqlite"}, want: exitSysError},
		{name: "other", err: errors.New("boom"), want: exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
