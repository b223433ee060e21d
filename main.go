package main

import (
	"fmt"
	"os"

	"github.com/Kuroukai/Kuroukai-free-api/src/cli"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "2.0.0"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
