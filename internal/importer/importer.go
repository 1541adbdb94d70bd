// Package importer parses bookmark collections in JSON, Netscape HTML and
// CSV form and loads them into the store inside a single transaction.
package importer

import (
	"fmt"
	"strings"
	"time"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/urlresolve"

	"go.uber.org/zap"
)

const (
	FormatJson = "json"
	FormatHtml = "html"
	FormatCsv  = "csv"
)

const (
	// maxErrorMessages caps the error list returned to the caller, counts
	// keep accumulating past the cap.
	maxErrorMessages = 50
	maxTitleLength   = 255
)

type Pipeline struct {
	store            domain.Store
	maxCategoryDepth int
	logger           *zap.Logger
}

func New(store domain.Store, maxCategoryDepth int, logger *zap.Logger) *Pipeline {
	if maxCategoryDepth <= 0 {
		maxCategoryDepth = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{store: store, maxCategoryDepth: maxCategoryDepth, logger: logger}
}

// importRecord is the canonical record every input format is parsed into
// before the shared post-processing runs.
type importRecord struct {
	URL          string
	Title        string
	Description  string
	CategoryPath string
	CategoryId   *int64
	Tags         []string
	Created      *time.Time
	Favorite     bool
	Favicon      string
}

// Import parses content in the given format and commits the parsed records
// in one transaction. Per-record problems (bad URLs, duplicates) are the
// normal partial-success outcome; any persistence error rolls the whole
// import back and nothing from the attempt is kept.
func (p *Pipeline) Import(content []byte, format string) domain.ImportResult {
	result := domain.ImportResult{Errors: make([]string, 0)}
	err := p.store.WithTx(func(tx domain.Store) error {
		codec := categorytree.New(tx, p.maxCategoryDepth, p.logger)
		var records []importRecord
		var err error
		switch format {
		case FormatJson:
			records, err = p.parseJson(tx, codec, content)
		case FormatHtml:
			records, err = parseNetscapeHtml(content)
		case FormatCsv:
			records, err = parseCsv(content)
		default:
			err = fmt.Errorf("unsupported import format: %s", format)
		}
		if err != nil {
			return err
		}
		if err := p.processRecords(tx, codec, records, &result); err != nil {
			return err
		}
		return tx.RecomputeTagUsage()
	})
	if err != nil {
		p.logger.Error("import transaction rolled back", zap.String("format", format), zap.Error(err))
		return domain.ImportResult{Error: err.Error(), Errors: make([]string, 0)}
	}
	result.Success = true
	p.logger.Info("import finished",
		zap.String("format", format),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result
}

// processRecords runs the format independent half of the import: URL
// validation, category resolution, duplicate detection and tag association.
// The returned error is only non-nil for persistence failures, which abort
// the transaction.
func (p *Pipeline) processRecords(tx domain.Store, codec *categorytree.Codec, records []importRecord, result *domain.ImportResult) error {
	for _, record := range records {
		recordURL := strings.TrimSpace(record.URL)
		if recordURL == "" {
			result.Skipped++
			addError(result, "Invalid URL: empty")
			continue
		}
		if !urlresolve.IsValidHttpUrl(recordURL) {
			result.Skipped++
			addError(result, fmt.Sprintf("Invalid URL: %s", recordURL))
			continue
		}

		categoryId := record.CategoryId
		if categoryId == nil {
			if path := strings.TrimSpace(record.CategoryPath); path != "" {
				var id int64
				var err error
				if strings.Contains(path, "/") {
					id, err = codec.ResolveOrCreatePath(path, "/")
				} else {
					id, err = codec.ResolveOrCreate(path)
				}
				if err != nil {
					return err
				}
				categoryId = &id
			}
		}

		// duplicates are matched on the exact url string within the resolved
		// category, the same URL in another category is a separate bookmark
		exists, err := tx.BookmarkExists(recordURL, categoryId)
		if err != nil {
			return err
		}
		if exists {
			result.Skipped++
			continue
		}

		bookmark := domain.Bookmark{
			URL:         recordURL,
			Title:       truncateTitle(record.Title),
			Description: record.Description,
			CategoryId:  categoryId,
			Favorite:    record.Favorite,
			Meta:        domain.Metadata{Favicon: record.Favicon},
		}
		if record.Created != nil {
			bookmark.Created = *record.Created
			bookmark.Updated = *record.Created
		}
		bookmarkId, err := tx.CreateBookmark(&bookmark)
		if err != nil {
			return err
		}
		for _, tagName := range record.Tags {
			tagName = strings.TrimSpace(tagName)
			if tagName == "" {
				continue
			}
			tag, err := tx.FindOrCreateTag(tagName)
			if err != nil {
				return err
			}
			if err := tx.AssociateTag(bookmarkId, tag.Id); err != nil {
				return err
			}
		}
		result.Imported++
	}
	return nil
}

func addError(result *domain.ImportResult, message string) {
	if len(result.Errors) < maxErrorMessages {
		result.Errors = append(result.Errors, message)
	}
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleLength {
		return title
	}
	return string(runes[:maxTitleLength-3]) + "..."
}
