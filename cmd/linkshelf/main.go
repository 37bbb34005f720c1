package main

import (
	"log"

	"github.com/MrSnakeDoc/linkshelf/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ linkshelf failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ linkshelf stopped with error: %v", err)
	}
}
