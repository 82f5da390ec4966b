package main

import (
	"github.com/joho/godotenv"

	"courseguide/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
