package main

import (
	"os"

	"github.com/trocaroupa/trocas/cmd/trocas/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
