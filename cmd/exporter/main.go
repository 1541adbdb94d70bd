package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"aggregat4/linkmarks/internal/exporter"
	"aggregat4/linkmarks/internal/logging"
	"aggregat4/linkmarks/internal/repository"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	var dbFilename string
	flag.StringVar(&dbFilename, "db", "", "The sqlite database file to export from")
	var outputFile string
	flag.StringVar(&outputFile, "out", "", "The file to write the export to, stdout when omitted")
	var format string
	flag.StringVar(&format, "format", "", "The export format, json, html or csv, derived from the output file extension when omitted")
	var chunkSize int
	flag.IntVar(&chunkSize, "chunkSize", 500, "Number of bookmarks to load per query during csv export")
	flag.Parse()

	if dbFilename == "" {
		log.Fatalf("require db parameter when exporting")
	}
	if format == "" && outputFile != "" {
		format = strings.TrimPrefix(filepath.Ext(outputFile), ".")
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

	output := os.Stdout
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			log.Fatalf("Error creating output file: %s", err)
		}
		defer output.Close()
	}

	pipeline := exporter.New(&store, chunkSize, 10, logger)
	switch format {
	case exporter.FormatJson:
		err = pipeline.ExportJson(output)
	case exporter.FormatCsv:
		err = pipeline.ExportCsv(output)
	case exporter.FormatHtml:
		err = pipeline.ExportHtml(output)
	default:
		log.Fatalf("unsupported export format %q", format)
	}
	if err != nil {
		log.Fatalf("Error exporting bookmarks: %s", err)
	}
}
