package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"

	"github.com/araddon/dateparse"
)

// jsonTagList accepts tags both as plain strings and as {"name": ...}
// objects, both occur in exports from other bookmark managers.
type jsonTagList []string

func (l *jsonTagList) UnmarshalJSON(data []byte) error {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*l = plain
		return nil
	}
	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return err
	}
	names := make([]string, 0, len(objects))
	for _, object := range objects {
		names = append(names, object.Name)
	}
	*l = names
	return nil
}

type jsonBookmark struct {
	URL          string      `json:"url"`
	Name         string      `json:"name"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Category     string      `json:"category"`
	Tags         jsonTagList `json:"tags"`
	CreatedAt    string      `json:"createdAt"`
	CreatedAtAlt string      `json:"created_at"`
	IsFavorite   bool        `json:"is_favorite"`
	Favicon      string      `json:"favicon"`
}

func (b jsonBookmark) title() string {
	if b.Title != "" {
		return b.Title
	}
	return b.Name
}

func (b jsonBookmark) created() *time.Time {
	for _, value := range []string{b.CreatedAt, b.CreatedAtAlt} {
		if value == "" {
			continue
		}
		if parsed, err := dateparse.ParseAny(value); err == nil {
			return &parsed
		}
	}
	return nil
}

type jsonCollection struct {
	Id          json.Number  `json:"id"`
	Name        string       `json:"name"`
	ParentId    *json.Number `json:"parentId"`
	Color       string       `json:"color"`
	Description string       `json:"description"`
	Links       []jsonBookmark `json:"links"`
}

type jsonPinnedLink struct {
	URL string `json:"url"`
}

// jsonShape is the result of deciding the input shape once up front: either
// the flat list form or the hierarchical collections form, never a per-field
// mixture of both.
type jsonShape struct {
	flat        []jsonBookmark
	collections []jsonCollection
	pinned      map[string]bool
}

func (s *jsonShape) isCollections() bool {
	return s.collections != nil
}

func decodeJsonShape(content []byte) (*jsonShape, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, errors.New("empty JSON document")
	}
	if trimmed[0] == '[' {
		var flat []jsonBookmark
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return &jsonShape{flat: flat}, nil
	}
	var envelope struct {
		Bookmarks   []jsonBookmark   `json:"bookmarks"`
		Collections []jsonCollection `json:"collections"`
		PinnedLinks []jsonPinnedLink `json:"pinnedLinks"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	pinned := make(map[string]bool)
	for _, link := range envelope.PinnedLinks {
		pinned[link.URL] = true
	}
	if envelope.Collections != nil {
		return &jsonShape{collections: envelope.Collections, pinned: pinned}, nil
	}
	if envelope.Bookmarks != nil {
		return &jsonShape{flat: envelope.Bookmarks, pinned: pinned}, nil
	}
	return nil, errors.New("JSON document contains neither bookmarks nor collections")
}

func (p *Pipeline) parseJson(tx domain.Store, codec *categorytree.Codec, content []byte) ([]importRecord, error) {
	shape, err := decodeJsonShape(content)
	if err != nil {
		return nil, err
	}
	if shape.isCollections() {
		return p.collectionRecords(tx, codec, shape)
	}
	records := make([]importRecord, 0, len(shape.flat))
	for _, bookmark := range shape.flat {
		records = append(records, importRecord{
			URL:          bookmark.URL,
			Title:        bookmark.title(),
			Description:  bookmark.Description,
			CategoryPath: bookmark.Category,
			Tags:         bookmark.Tags,
			Created:      bookmark.created(),
			Favorite:     bookmark.IsFavorite || shape.pinned[bookmark.URL],
			Favicon:      bookmark.Favicon,
		})
	}
	return records, nil
}

// collectionRecords imports the hierarchical collections shape in three
// passes: create or find every collection as a category, rewrite the parent
// links through the old-id to new-id map while recomputing levels, and
// finally emit every collection's links against its mapped category.
func (p *Pipeline) collectionRecords(tx domain.Store, codec *categorytree.Codec, shape *jsonShape) ([]importRecord, error) {
	idMap := make(map[string]int64)
	parentOf := make(map[string]string)

	// pass 1: categories, matched by exact name; an existing category only
	// ever gets its color updated
	for i := range shape.collections {
		collection := shape.collections[i]
		existing, err := tx.FindCategoryByName(collection.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if collection.Color != "" && collection.Color != existing.Color {
				if err := tx.UpdateCategoryColor(existing.Id, collection.Color); err != nil {
					return nil, err
				}
			}
			idMap[collection.Id.String()] = existing.Id
		} else {
			category := domain.Category{
				Name:        collection.Name,
				Description: collection.Description,
				Color:       collection.Color,
			}
			id, err := tx.CreateCategory(&category)
			if err != nil {
				return nil, err
			}
			idMap[collection.Id.String()] = id
		}
		if collection.ParentId != nil {
			parentOf[collection.Id.String()] = collection.ParentId.String()
		}
	}

	// pass 2: rewrite parent links. The parent may be a pre-existing category
	// anywhere in the tree, so levels come from the parent's stored level and
	// cascade through the subtree, not from the input parent chain.
	for _, collection := range shape.collections {
		oldId := collection.Id.String()
		parentOldId, hasParent := parentOf[oldId]
		if !hasParent {
			continue
		}
		newParentId, known := idMap[parentOldId]
		if !known {
			continue
		}
		if err := validateCollectionDepth(oldId, parentOf, p.maxCategoryDepth); err != nil {
			return nil, err
		}
		if err := codec.Move(idMap[oldId], &newParentId); err != nil {
			return nil, err
		}
	}

	// pass 3: links
	var records []importRecord
	for _, collection := range shape.collections {
		categoryId := idMap[collection.Id.String()]
		for _, link := range collection.Links {
			id := categoryId
			records = append(records, importRecord{
				URL:         link.URL,
				Title:       link.title(),
				Description: link.Description,
				CategoryId:  &id,
				Tags:        link.Tags,
				Created:     link.created(),
				Favorite:    link.IsFavorite || shape.pinned[link.URL],
				Favicon:     link.Favicon,
			})
		}
	}
	return records, nil
}

// validateCollectionDepth walks the old-id parent chain so a corrupt
// self-referencing or overly deep input is rejected before any reparenting.
func validateCollectionDepth(id string, parentOf map[string]string, maxDepth int) error {
	depth := 0
	for current, ok := parentOf[id]; ok; current, ok = parentOf[current] {
		depth++
		if depth >= maxDepth {
			return fmt.Errorf("collection %s exceeds the maximum nesting depth of %d", id, maxDepth)
		}
	}
	return nil
}
