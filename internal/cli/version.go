package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the release of squidnote-unpack.
const Version = "1.0.0"

const modulePath = "github.com/laczik/squidnote-unpack"

const about = `Extract individual notes from a SquidNote backup archive.

The extracted files are meant as input to squidnote2xopp. They are not
intended to be loaded by SquidNote and have not been tested for that use.

Please submit suggestions, feature requests and bug reports on
https://github.com/laczik/
`

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the squidnote-unpack version",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "squidnote-unpack v%s\nmodule: %s\n\n%s", Version, modulePath, about)
			return nil
		},
	}
}
