package exporter

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"
)

var utf8ByteOrderMark = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{"url", "title", "description", "category", "tags", "is_favorite", "created_at"}

// ExportCsv streams all bookmarks ordered by id, fetching them in chunks so an
// export never materializes the full dataset in memory. The output starts with
// a UTF-8 byte order mark for spreadsheet compatibility.
func (p *Pipeline) ExportCsv(w io.Writer) error {
	if _, err := w.Write(utf8ByteOrderMark); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	codec := categorytree.New(p.store, p.maxCategoryDepth, p.logger)
	paths := map[int64]string{}
	afterId := int64(0)
	for {
		bookmarks, err := p.store.ListBookmarksChunk(afterId, p.chunkSize)
		if err != nil {
			return err
		}
		if len(bookmarks) == 0 {
			break
		}
		for _, bookmark := range bookmarks {
			path, err := p.categoryPath(codec, paths, bookmark.CategoryId)
			if err != nil {
				return err
			}
			if err := writer.Write(csvRow(bookmark, path)); err != nil {
				return err
			}
		}
		afterId = bookmarks[len(bookmarks)-1].Id
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvRow(bookmark domain.Bookmark, categoryPath string) []string {
	tagNames := make([]string, 0, len(bookmark.Tags))
	for _, tag := range bookmark.Tags {
		tagNames = append(tagNames, tag.Name)
	}
	return []string{
		bookmark.URL,
		bookmark.Title,
		bookmark.Description,
		categoryPath,
		strings.Join(tagNames, ","),
		strconv.FormatBool(bookmark.Favorite),
		bookmark.Created.UTC().Format(time.RFC3339),
	}
}

func (p *Pipeline) categoryPath(codec *categorytree.Codec, cache map[int64]string, categoryId *int64) (string, error) {
	if categoryId == nil {
		return "", nil
	}
	if path, ok := cache[*categoryId]; ok {
		return path, nil
	}
	path, err := codec.PathString(*categoryId, "/")
	if err != nil {
		return "", err
	}
	cache[*categoryId] = path
	return path, nil
}
