// Command checklist manages the versioned checklist progress file: its
// schema migrations and its backups.
package main

import (
	"os"

	"github.com/mesh-intelligence/checklist/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
