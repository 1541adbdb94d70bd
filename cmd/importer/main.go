package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"aggregat4/linkmarks/internal/importer"
	"aggregat4/linkmarks/internal/logging"
	"aggregat4/linkmarks/internal/repository"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	var dbFilename string
	flag.StringVar(&dbFilename, "db", "", "The sqlite database file to import into")
	var importFile string
	flag.StringVar(&importFile, "importFile", "", "A bookmarks file to import, json, html or csv")
	var format string
	flag.StringVar(&format, "format", "", "The import format, derived from the file extension when omitted")
	var maxCategoryDepth int
	flag.IntVar(&maxCategoryDepth, "maxCategoryDepth", 10, "Maximum category nesting depth")
	flag.Parse()

	if dbFilename == "" || importFile == "" {
		log.Fatalf("require db and importFile parameters when importing")
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(importFile), ".")
	}
	switch format {
	case importer.FormatJson, importer.FormatHtml, importer.FormatCsv:
	default:
		log.Fatalf("unsupported import format %q", format)
	}

	content, err := os.ReadFile(importFile)
	if err != nil {
		log.Fatalf("Error reading import file: %s", err)
	}

	logger, err := logging.New("info", true)
	if err != nil {
		log.Fatalf("Error initializing logger: %s", err)
	}
	defer logger.Sync()

	var store repository.Store
	err = store.InitAndVerifyDb(dbFilename)
	if err != nil {
		log.Fatalf("Error opening database: %s", err)
	}
	defer store.Close()

	result := importer.New(&store, maxCategoryDepth, logger).Import(content, format)
	if !result.Success {
		log.Fatalf("Error importing bookmarks: %s", result.Error)
	}
	fmt.Printf("imported %d bookmarks, skipped %d\n", result.Imported, result.Skipped)
	for _, message := range result.Errors {
		fmt.Printf("  %s\n", message)
	}
}
