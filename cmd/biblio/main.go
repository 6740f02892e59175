// Package main provides the biblio CLI.
package main

import (
	"os"

	"github.com/mesh-intelligence/biblio/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
