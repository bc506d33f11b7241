package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ppiankov/reportgate/internal/cli"
	"github.com/ppiankov/reportgate/internal/gate"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, gate.ErrGateFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
