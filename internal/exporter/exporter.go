// Package exporter serializes the bookmark, category and tag graph into
// JSON, CSV and Netscape HTML interchange formats.
package exporter

import (
	"fmt"
	"time"

	"aggregat4/linkmarks/internal/domain"

	"go.uber.org/zap"
)

const (
	FormatJson = "json"
	FormatHtml = "html"
	FormatCsv  = "csv"
)

const (
	exportVersion    = 1
	defaultChunkSize = 500
)

type Pipeline struct {
	store            domain.Store
	chunkSize        int
	maxCategoryDepth int
	logger           *zap.Logger
}

func New(store domain.Store, chunkSize int, maxCategoryDepth int, logger *zap.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, chunkSize: chunkSize, maxCategoryDepth: maxCategoryDepth, logger: logger}
}

// Filename returns the download filename for an export produced now, e.g.
// bookmarks_2026-08-29.json.
func Filename(format string) string {
	return fmt.Sprintf("bookmarks_%s.%s", time.Now().Format("2006-01-02"), format)
}

// MimeType returns the content type matching an export format.
func MimeType(format string) string {
	switch format {
	case FormatJson:
		return "application/json"
	case FormatCsv:
		return "text/csv; charset=utf-8"
	case FormatHtml:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}
