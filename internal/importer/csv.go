package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/araddon/dateparse"
)

var utf8ByteOrderMark = []byte{0xef, 0xbb, 0xbf}

// parseCsv parses a CSV document whose first line is a header row naming the
// columns. Recognized columns are url, title, description, category, tags
// (one comma-joined field), is_favorite and created_at; anything else is
// ignored.
func parseCsv(content []byte) ([]importRecord, error) {
	content = bytes.TrimPrefix(content, utf8ByteOrderMark)
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("CSV document has no header row")
	}
	columnIndex := make(map[string]int)
	for i, name := range rows[0] {
		columnIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columnIndex["url"]; !ok {
		return nil, errors.New("CSV header row has no url column")
	}

	records := make([]importRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		field := func(name string) string {
			index, ok := columnIndex[name]
			if !ok || index >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[index])
		}
		record := importRecord{
			URL:          field("url"),
			Title:        field("title"),
			Description:  field("description"),
			CategoryPath: field("category"),
		}
		if tags := field("tags"); tags != "" {
			record.Tags = strings.Split(tags, ",")
		}
		if favorite := strings.ToLower(field("is_favorite")); favorite == "true" || favorite == "1" || favorite == "yes" {
			record.Favorite = true
		}
		if createdAt := field("created_at"); createdAt != "" {
			if parsed, err := dateparse.ParseAny(createdAt); err == nil {
				record.Created = &parsed
			}
		}
		records = append(records, record)
	}
	return records, nil
}
