package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/magefree/arena-server-go/internal/catalog"
)

// import_cards merges a CSV card export into a catalog file.
//
//	go run ./scripts/import_cards.go -csv data/cards.csv -base config/catalog.yaml -out config/catalog.yaml
func main() {
	csvPath := flag.String("csv", "data/cards_export.csv", "CSV export to import")
	basePath := flag.String("base", "", "catalog to merge into (default: built-in catalog)")
	outPath := flag.String("out", "catalog.yaml", "where to write the merged catalog")
	flag.Parse()

	absPath, err := filepath.Abs(*csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Arena Card Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	start := time.Now()
	defs, err := catalog.ImportCSV(file)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	fmt.Printf("Parsed %d cards\n", len(defs))

	cat, err := catalog.Load(*basePath)
	if err != nil {
		log.Fatalf("Failed to load base catalog: %v", err)
	}
	before := len(cat.CardIDs())

	failed := 0
	for _, def := range defs {
		if err := cat.AddCard(def); err != nil {
			log.Printf("Skipping card %s: %v", def.ID, err)
			failed++
		}
	}
	if err := cat.Validate(); err != nil {
		log.Fatalf("Merged catalog is invalid: %v", err)
	}

	data, err := cat.Encode()
	if err != nil {
		log.Fatalf("Failed to encode catalog: %v", err)
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("Failed to write catalog: %v", err)
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Imported: %d cards (%d new)\n", len(defs)-failed, len(cat.CardIDs())-before)
	if failed > 0 {
		fmt.Printf("Failed: %d cards\n", failed)
	}
	fmt.Printf("Time taken: %s\n", time.Since(start))
	fmt.Printf("Catalog written to %s\n", *outPath)
}
