package main

import (
	"log"

	"github.com/seamark/seamark/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ seamark failed to start: %v", err)
	}
}
