package main

import (
	"os"

	"github.com/dunamismax/pixelforge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
