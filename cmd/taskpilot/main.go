package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/hamzaessahbaoui/taskpilot/cmd/taskpilot/cmds"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := cmds.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
