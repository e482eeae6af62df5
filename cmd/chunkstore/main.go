package main

import (
	"fmt"
	"os"

	"github.com/marmos91/chunkstore/cmd/chunkstore/commands"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/chunkstore/pkg/metrics/prometheus"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
