// Package cli provides the command-line interface for screengrid.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config.yaml (defaults to config.yaml in the screengrid home)",
		EnvVars: []string{"SCREENGRID_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "screengrid server URL for client commands",
		Value:   "http://127.0.0.1:8080",
		EnvVars: []string{"SCREENGRID_SERVER"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"SCREENGRID_VERBOSE"},
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "screengrid",
		Usage:   "Remote device automation over MQTT with OCR-backed text detection",
		Version: Version,
		Description: `screengrid drives remote devices through an MQTT broker and finds
on-screen text via the UI hierarchy or OCR screenshots.

Examples:
  screengrid serve
  screengrid run --device pixel-7 find_and_click --var text=Login
  screengrid engines`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			serveCommand,
			runCommand,
			enginesCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
