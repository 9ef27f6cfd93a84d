package main

import (
	"os"

	"github.com/mistakeknot/agentmail/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
