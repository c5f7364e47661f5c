package main

import (
	"os"

	"github.com/joho/godotenv"

	"logoforge/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
