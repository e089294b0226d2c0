package main

import (
	"os"

	"github.com/Apurer/go-entity-processors/cmd/processorctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
