// Command squidnote-unpack extracts individual notes from a SquidNote backup
// archive into standalone .squidnote files.
package main

import "github.com/laczik/squidnote-unpack/internal/cli"

func main() {
	cli.Execute()
}
