// Package report carries progress and listing output for a run. A Reporter
// is built once from the command-line verbosity and handed to the parts of
// the run that need to talk to the user.
package report

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Level selects how much progress output is written.
type Level int

const (
	// LevelQuiet suppresses progress; only errors are logged.
	LevelQuiet Level = iota
	// LevelNormal logs one line per note plus run start and end.
	LevelNormal
	// LevelVerbose adds per-category and per-asset detail.
	LevelVerbose
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelQuiet:
		return slog.LevelError
	case LevelVerbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Reporter writes listing lines to out and progress messages through a
// structured logger on errOut.
type Reporter struct {
	out    io.Writer
	logger *slog.Logger
	level  Level
}

// New builds a Reporter writing listings to out and logs to errOut.
func New(out, errOut io.Writer, level Level) *Reporter {
	handler := slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Reporter{out: out, logger: slog.New(handler), level: level}
}

// Discard returns a Reporter that writes nothing.
func Discard() *Reporter {
	return New(io.Discard, io.Discard, LevelQuiet)
}

// Level returns the configured verbosity.
func (r *Reporter) Level() Level {
	return r.level
}

// Counter formats the "0001/0003" position of a note within a run.
func Counter(i, total int) string {
	return fmt.Sprintf("%04d/%04d", i, total)
}

// ListLine writes one listing line: position, ID, quoted time, quoted name.
// Listing output is the command's result and ignores the verbosity level.
func (r *Reporter) ListLine(i, total int, n types.Note) {
	fmt.Fprintf(r.out, "%s %s \"%s\" \"%s\"\n", Counter(i, total), n.ID, n.ModifiedText, n.Name)
}

// Printf writes free-form result output.
func (r *Reporter) Printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// Info logs a progress message.
func (r *Reporter) Info(msg string, args ...any) {
	r.logger.Info(msg, args...)
}

// Debug logs a detail message shown only in verbose mode.
func (r *Reporter) Debug(msg string, args ...any) {
	r.logger.Debug(msg, args...)
}

// Warn logs a recoverable problem.
func (r *Reporter) Warn(msg string, args ...any) {
	r.logger.Warn(msg, args...)
}

// Error logs a failure.
func (r *Reporter) Error(msg string, args ...any) {
	r.logger.Error(msg, args...)
}

// Progress logs the outcome of one note.
func (r *Reporter) Progress(i, total int, n types.Note, action, file string, size int64) {
	args := []any{"id", n.ID, "modified", n.ModifiedText, "name", n.Name}
	if file != "" {
		args = append(args, "file", file)
	}
	if size > 0 {
		args = append(args, "size", humanize.Bytes(uint64(size)))
	}
	r.logger.Info(Counter(i, total)+" "+action, args...)
}
