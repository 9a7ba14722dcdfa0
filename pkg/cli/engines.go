package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/screengrid-dev/screengrid/pkg/client"
)

var enginesCommand = &cli.Command{
	Name:  "engines",
	Usage: "Show OCR engine availability on a running server",
	Description: `List the OCR engines registered on the server, their availability,
and the languages each one supports.

Examples:
  screengrid engines
  screengrid -s http://automation-host:8080 engines`,
	Action: runEngines,
}

func runEngines(c *cli.Context) error {
	api := client.New(c.String("server"))

	status, defaultEngine, err := api.OCREngineStatus(context.Background())
	if err != nil {
		return err
	}

	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		engine := status[name]
		marker := " "
		if name == defaultEngine {
			marker = "*"
		}
		state := "unavailable"
		if engine.Available {
			state = "available"
		}
		fmt.Printf("%s %-12s %-12s %s\n", marker, name, state, strings.Join(engine.SupportedLanguages, ","))
	}
	return nil
}
