package main

import (
	"fmt"
	"os"

	"github.com/chanomhub/gamedl/internal/cli"
)

func main() {
	if err := cli.New().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "gamedl: %v\n", err)
		os.Exit(1)
	}
}
