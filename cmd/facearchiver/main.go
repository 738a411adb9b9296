package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"facearchiver/internal/app"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <image-path> [archive-dir]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
	imagePath := os.Args[1]
	archiveDir := ""
	if len(os.Args) > 2 {
		archiveDir = os.Args[2]
	}

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	if err := application.Run(context.Background(), imagePath, archiveDir); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}
