package main

import (
	"os"

	"ReviewAspects/cmd/absa/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
