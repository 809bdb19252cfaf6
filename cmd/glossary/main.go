package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/glossary/internal/cli"
)

func main() {
	// .env only fills variables that are not already set
	_ = godotenv.Load()

	flags := cli.NewFlags()
	if err := cli.CreateRootCommand(flags).Execute(); err != nil {
		os.Exit(1)
	}
}
