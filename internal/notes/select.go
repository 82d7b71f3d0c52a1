// Package notes lists the notes of a backup database and resolves the rows
// and assets each note depends on.
package notes

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/laczik/squidnote-unpack/internal/sqlite"
	"github.com/laczik/squidnote-unpack/pkg/types"
)

// Time layouts used for listing, matching and synthesized names.
const (
	ModifiedLayout = "2006-01-02 15:04:05"
	UntitledLayout = "20060102-150405"
	UntitledPrefix = "Untitled_"
)

// Matcher selects notes by a user pattern anchored at the start of the
// identifier, the name or the formatted modification time.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles pattern. An empty pattern matches every note.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return &Matcher{}, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
	}
	return &Matcher{re: re}, nil
}

// MatchAll returns a matcher that selects every note.
func MatchAll() *Matcher {
	return &Matcher{}
}

// Match reports whether n is selected. The identifier is tried first, then
// the name, then the formatted modification time.
func (m *Matcher) Match(n types.Note) bool {
	if m == nil || m.re == nil {
		return true
	}
	return m.re.MatchString(n.ID) ||
		m.re.MatchString(n.Name) ||
		m.re.MatchString(n.ModifiedText)
}

// String returns the compiled pattern, or "" for match-all.
func (m *Matcher) String() string {
	if m == nil || m.re == nil {
		return ""
	}
	return m.re.String()
}

// FormatModified renders a millisecond timestamp in loc using ModifiedLayout.
func FormatModified(ms int64, loc *time.Location) string {
	return time.UnixMilli(ms).In(loc).Format(ModifiedLayout)
}

// UntitledName is the name given to notes saved without one.
func UntitledName(ms int64, loc *time.Location) string {
	return UntitledPrefix + time.UnixMilli(ms).In(loc).Format(UntitledLayout)
}

// Select lists the notes of the backup database ordered by ascending
// modification time and keeps those accepted by m. Empty names are replaced
// by UntitledName. A nil loc means time.Local.
func Select(ctx context.Context, store *sqlite.Store, m *Matcher, loc *time.Location) ([]types.Note, error) {
	if loc == nil {
		loc = time.Local
	}

	rows, err := store.Query(ctx, sqlite.SelectNotes)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	var selected []types.Note
	for _, row := range rows {
		modified, err := row.Int64(2)
		if err != nil {
			return nil, fmt.Errorf("note %s modified: %w", row.String(0), err)
		}
		n := types.Note{
			ID:           row.String(0),
			Name:         row.String(1),
			Modified:     modified,
			ModifiedText: FormatModified(modified, loc),
		}
		if n.Name == "" {
			n.Name = UntitledName(modified, loc)
		}
		if m.Match(n) {
			selected = append(selected, n)
		}
	}
	return selected, nil
}
