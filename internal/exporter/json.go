package exporter

import (
	"encoding/json"
	"io"
	"time"

	"aggregat4/linkmarks/internal/domain"
)

type jsonExport struct {
	Version     int                    `json:"version"`
	ExportedAt  string                 `json:"exported_at"`
	Collections []jsonExportCollection `json:"collections"`
	PinnedLinks []jsonExportPinned     `json:"pinnedLinks"`
}

type jsonExportCollection struct {
	Id          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Color       string           `json:"color,omitempty"`
	ParentId    *int64           `json:"parentId"`
	Links       []jsonExportLink `json:"links"`
}

type jsonExportLink struct {
	URL         string           `json:"url"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Tags        []jsonExportTag  `json:"tags"`
	CreatedAt   string           `json:"createdAt"`
	UpdatedAt   string           `json:"updatedAt"`
	Metadata    *jsonExportMeta  `json:"metadata,omitempty"`
}

type jsonExportTag struct {
	Name string `json:"name"`
}

type jsonExportPinned struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type jsonExportMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
	Type        string `json:"type,omitempty"`
	Author      string `json:"author,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Locale      string `json:"locale,omitempty"`
	TwitterCard string `json:"twitterCard,omitempty"`
	TwitterSite string `json:"twitterSite,omitempty"`
	Image       string `json:"image,omitempty"`
	Favicon     string `json:"favicon,omitempty"`
	HttpStatus  *int   `json:"httpStatus,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// ExportJson writes the full dataset as a collections envelope. Collection ids
// are the stored category ids so parent references survive a re-import, and
// bookmarks without a category land in a pseudo-collection with id 0 that is
// only emitted when such bookmarks exist.
func (p *Pipeline) ExportJson(w io.Writer) error {
	categories, err := p.store.ListCategories()
	if err != nil {
		return err
	}
	export := jsonExport{
		Version:     exportVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Collections: make([]jsonExportCollection, 0, len(categories)+1),
		PinnedLinks: []jsonExportPinned{},
	}
	for _, category := range categories {
		bookmarks, err := p.store.ListBookmarksByCategory(&category.Id)
		if err != nil {
			return err
		}
		export.Collections = append(export.Collections, jsonExportCollection{
			Id:          category.Id,
			Name:        category.Name,
			Description: category.Description,
			Color:       category.Color,
			ParentId:    category.ParentId,
			Links:       exportLinks(bookmarks),
		})
	}
	uncategorized, err := p.store.ListBookmarksByCategory(nil)
	if err != nil {
		return err
	}
	if len(uncategorized) > 0 {
		export.Collections = append(export.Collections, jsonExportCollection{
			Id:    0,
			Name:  "Uncategorized",
			Links: exportLinks(uncategorized),
		})
	}
	favorites, err := p.store.ListFavoriteBookmarks()
	if err != nil {
		return err
	}
	for _, bookmark := range favorites {
		export.PinnedLinks = append(export.PinnedLinks, jsonExportPinned{
			URL:  bookmark.URL,
			Name: bookmark.Title,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func exportLinks(bookmarks []domain.Bookmark) []jsonExportLink {
	links := make([]jsonExportLink, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		link := jsonExportLink{
			URL:         bookmark.URL,
			Name:        bookmark.Title,
			Description: bookmark.Description,
			Tags:        make([]jsonExportTag, 0, len(bookmark.Tags)),
			CreatedAt:   bookmark.Created.UTC().Format(time.RFC3339),
			UpdatedAt:   bookmark.Updated.UTC().Format(time.RFC3339),
			Metadata:    exportMeta(bookmark.Meta),
		}
		for _, tag := range bookmark.Tags {
			link.Tags = append(link.Tags, jsonExportTag{Name: tag.Name})
		}
		links = append(links, link)
	}
	return links
}

func exportMeta(meta domain.Metadata) *jsonExportMeta {
	if meta == (domain.Metadata{}) {
		return nil
	}
	return &jsonExportMeta{
		Title:       meta.Title,
		Description: meta.Description,
		SiteName:    meta.SiteName,
		Type:        meta.Type,
		Author:      meta.Author,
		Keywords:    meta.Keywords,
		Locale:      meta.Locale,
		TwitterCard: meta.TwitterCard,
		TwitterSite: meta.TwitterSite,
		Image:       meta.Image,
		Favicon:     meta.Favicon,
		HttpStatus:  meta.HttpStatus,
		ContentType: meta.ContentType,
	}
}
