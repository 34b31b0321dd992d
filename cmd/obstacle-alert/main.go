// Package main is the obstacle-alert command.
package main

import (
	"os"

	"github.com/fatih/color"

	"go.viam.com/obstaclealert/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		//nolint:errcheck
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
