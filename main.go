package main

import (
	"github.com/joho/godotenv"

	"landgen/internal/cli"
)

func main() {
	// Provider API keys are commonly kept in a local .env during
	// development. A missing file is fine.
	_ = godotenv.Load()

	cli.Execute()
}
