package main

import (
	"fmt"
	"log"
	"os"

	"github.com/umputun/fleetcheck/app/config"
)

func main() {
	outputPath := "schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}
	if err := generate(outputPath); err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Printf("Schema generated successfully at %s\n", outputPath)
}

// generate writes the reflected profile schema to path
func generate(path string) error {
	data, err := config.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to make schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	return nil
}
