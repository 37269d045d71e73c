package main

import (
	"log"

	"github.com/MrSnakeDoc/tonton/internal/cli"
	"github.com/MrSnakeDoc/tonton/internal/version"
)

func main() {
	if err := cli.Run(version.Version); err != nil {
		log.Fatalf("❌ tonton failed: %v", err)
	}
}
