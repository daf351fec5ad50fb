package main

import (
	"fmt"
	"os"

	"github.com/test-jitcomp/Artemis/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jfuzz:", err)
		os.Exit(1)
	}
}
