// Package cli implements the squidnote-unpack command-line interface.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/laczik/squidnote-unpack/internal/paths"
	"github.com/laczik/squidnote-unpack/internal/report"
	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/internal/unpack"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds flag values for one command tree.
type rootFlags struct {
	configDir string
	filename  string
	regex     string
	all       bool
	quiet     bool
	verbose   bool
	utc       bool

	list            bool
	extract         bool
	dryRun          bool
	outputDir       string
	strictDocuments bool
	keepGoing       bool
}

// NewRootCmd creates the top-level "squidnote-unpack" command with its flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "squidnote-unpack -f BACKUP [flags]",
		Short: "Extract individual notes from a SquidNote backup archive",
		Long: "squidnote-unpack lists the notes in a SquidNote backup archive and extracts\n" +
			"selected notes into standalone .squidnote files, one per note.",
		Version: Version,
		Args:    noArgs,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, f)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return userError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&f.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVarP(&f.filename, "filename", "f", "", "backup archive file name (required)")
	pf.StringVarP(&f.regex, "regex", "r", "", "ID, date or name pattern to select notes")
	pf.BoolVarP(&f.all, "all", "a", false, "select every note, ignoring --regex")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "disable progress reporting")
	pf.BoolVar(&f.verbose, "verbose", false, "report per-asset detail")
	pf.BoolVar(&f.utc, "utc", false, "format timestamps in UTC instead of local time")

	fl := root.Flags()
	fl.BoolVarP(&f.list, "list", "l", false, "list selected notes")
	fl.BoolVarP(&f.extract, "extract", "x", false, "extract selected notes")
	fl.BoolVarP(&f.dryRun, "dry-run", "n", false, "do not write any files")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for extracted notes (default: working directory)")
	fl.BoolVar(&f.strictDocuments, "strict-documents", false, "fail on notes with several background documents")
	fl.BoolVar(&f.keepGoing, "keep-going", false, "continue with the next note after a failure")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newConfigCmd(f))
	root.AddCommand(newInspectCmd(f))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command tree with args and returns the exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// exitErr carries an explicit exit code.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func userError(err error) error {
	return &exitErr{code: exitUserError, err: err}
}

func userErrorf(format string, args ...any) error {
	return userError(fmt.Errorf(format, args...))
}

// noArgs rejects positional arguments as a user error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return userError(err)
	}
	return nil
}

// exitCode maps err to a process exit code. Bad input from the user exits 1;
// everything else, including source and record failures, exits 2.
func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, types.ErrInvalidPattern) ||
		errors.Is(err, types.ErrLocaleEmpty) ||
		errors.Is(err, types.ErrLocaleInvalid) {
		return exitUserError
	}
	return exitSysError
}

// checkCapabilities verifies the runtime pieces the extractor depends on
// before any work starts.
func checkCapabilities() error {
	if !slices.Contains(sql.Drivers(), sqlite.DriverName) {
		return &types.MissingDependencyError{
			Name: sqlite.DriverName,
			Hint: "rebuild with the modernc.org/sqlite driver linked in",
		}
	}
	return nil
}

// newReporter builds the Reporter matching the verbosity flags.
func newReporter(cmd *cobra.Command, f *rootFlags) *report.Reporter {
	level := report.LevelNormal
	switch {
	case f.quiet:
		level = report.LevelQuiet
	case f.verbose:
		level = report.LevelVerbose
	}
	return report.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), level)
}

// commonChecks validates the flags shared by the root and inspect commands.
func commonChecks(f *rootFlags) error {
	if err := checkCapabilities(); err != nil {
		return err
	}
	if f.filename == "" {
		return userErrorf(`required flag "filename" not set`)
	}
	if f.quiet && f.verbose {
		return userErrorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

func location(cfg *types.Config) *time.Location {
	if cfg.UTC {
		return time.UTC
	}
	return time.Local
}

func runRoot(cmd *cobra.Command, f *rootFlags) error {
	if err := commonChecks(f); err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd, f.configDir)
	if err != nil {
		return err
	}
	outDir, err := paths.ResolveOutputDir(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("resolving output directory: %w", err)
	}

	// --list wins over --extract and --all.
	mode := unpack.ModeSelect
	switch {
	case f.list:
		mode = unpack.ModeList
	case f.extract, f.all:
		mode = unpack.ModeExtract
	}

	rep := newReporter(cmd, f)
	rep.Info("input file", "path", f.filename)
	u := unpack.New(unpack.Options{
		Source:          f.filename,
		Pattern:         f.regex,
		All:             f.all,
		Mode:            mode,
		DryRun:          f.dryRun,
		OutputDir:       outDir,
		Locale:          cfg.Locale,
		StrictDocuments: cfg.StrictDocuments,
		KeepGoing:       cfg.KeepGoing,
		Location:        location(cfg),
	}, rep)

	res, err := u.Run(cmd.Context())
	if err != nil {
		return err
	}
	if mode == unpack.ModeSelect {
		rep.Info("nothing to do, use --list or --extract", "selected", len(res.Selected))
	}
	return nil
}
