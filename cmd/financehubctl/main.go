package main

import (
	"os"

	"financehub/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
