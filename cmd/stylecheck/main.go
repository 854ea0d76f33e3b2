package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/boxesandglue/stylecheck"
	"github.com/boxesandglue/stylecheck/internal/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, stylecheck.ErrChecksFailed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
