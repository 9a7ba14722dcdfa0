package main

import "github.com/screengrid-dev/screengrid/pkg/cli"

func main() {
	cli.Execute()
}
