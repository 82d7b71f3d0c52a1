package cli

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/laczik/squidnote-unpack/internal/unpack"
)

func newInspectCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect -f BACKUP [-r PATTERN]",
		Short: "Show what each selected note would extract",
		Long: "Resolve every selected note and print its pages, images and background\n" +
			"documents, flagging assets missing from the backup. Nothing is written.",
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, f)
		},
	}
}

func runInspect(cmd *cobra.Command, f *rootFlags) error {
	if err := commonChecks(f); err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd, f.configDir)
	if err != nil {
		return err
	}

	rep := newReporter(cmd, f)
	u := unpack.New(unpack.Options{
		Source:   f.filename,
		Pattern:  f.regex,
		All:      f.all,
		Locale:   cfg.Locale,
		Location: location(cfg),
	}, rep)

	found, err := u.Inspect(cmd.Context())
	for i, ins := range found {
		rep.ListLine(i+1, len(found), ins.Note)
		rep.Printf("    pages: %d  images: %d (%d rows)  documents: %d\n",
			ins.Pages, ins.Images, ins.ImageRows, len(ins.Documents))
		for _, d := range ins.Documents {
			if d.Err != "" {
				rep.Printf("    document %s: %s, unreadable: %s\n", d.ID, humanize.Bytes(uint64(d.Size)), d.Err)
				continue
			}
			rep.Printf("    document %s: %s, %d page(s)\n", d.ID, humanize.Bytes(uint64(d.Size)), d.PageCount)
		}
		if len(ins.Missing) > 0 {
			rep.Printf("    missing: %s\n", strings.Join(ins.Missing, ", "))
		}
		if ins.Warning != "" {
			rep.Printf("    warning: %s\n", ins.Warning)
		}
	}
	return err
}
