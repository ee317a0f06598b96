package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/autodocgen/autodocgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Diagnostics were already printed; usage errors carry their own text.
		if !errors.Is(err, cli.ErrDiagnostics) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
