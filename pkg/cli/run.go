package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/screengrid-dev/screengrid/pkg/client"
	"github.com/screengrid-dev/screengrid/pkg/core"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a script on a device and wait for the result",
	ArgsUsage: "<script-name>",
	Description: `Submit a script execution to a running screengrid server and poll
until it finishes. Variables are passed as repeated --var KEY=VALUE flags.

Examples:
  screengrid run --device pixel-7 screenshot
  screengrid run --device pixel-7 find_and_click --var text=Login
  screengrid run --device pixel-7 check_text --var text=Welcome --var languages=eng+deu`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "device",
			Aliases:  []string{"d"},
			Usage:    "Target device ID",
			Required: true,
			EnvVars:  []string{"SCREENGRID_DEVICE"},
		},
		&cli.StringSliceFlag{
			Name:    "var",
			Aliases: []string{"e"},
			Usage:   "Script variable as KEY=VALUE (repeatable)",
		},
		&cli.IntFlag{
			Name:  "wait-timeout",
			Usage: "Seconds to wait for the execution to finish",
			Value: 120,
		},
		&cli.BoolFlag{
			Name:  "no-wait",
			Usage: "Print the execution ID and return without polling",
		},
	},
	Action: runRun,
}

func runRun(c *cli.Context) error {
	scriptName := c.Args().First()
	if scriptName == "" {
		return fmt.Errorf("a script name is required (see 'screengrid run --help')")
	}

	variables := parseVariables(c.StringSlice("var"))
	api := client.New(c.String("server"))

	ctx := context.Background()
	executionID, err := api.Submit(ctx, c.String("device"), scriptName, variables)
	if err != nil {
		return err
	}

	if c.Bool("no-wait") {
		fmt.Println(executionID)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(c.Int("wait-timeout"))*time.Second)
	defer cancel()

	rec, err := api.WaitForCompletion(waitCtx, executionID)
	if err != nil {
		return err
	}

	printRecord(rec)
	if rec.Status != core.StatusCompleted {
		return fmt.Errorf("execution %s %s", executionID, rec.Status)
	}
	return nil
}

// parseVariables turns KEY=VALUE pairs into a variable map. Entries
// without an equals sign are ignored.
func parseVariables(pairs []string) map[string]interface{} {
	variables := make(map[string]interface{})
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			continue
		}
		variables[key] = value
	}
	return variables
}

func printRecord(rec *core.ExecutionRecord) {
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", rec)
		return
	}
	os.Stdout.Write(out)
	fmt.Println()
}
