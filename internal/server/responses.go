package server

import (
	"time"

	"aggregat4/linkmarks/internal/domain"
)

type bookmarkResponse struct {
	Id          int64             `json:"id"`
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	CategoryId  *int64            `json:"categoryId"`
	Favorite    bool              `json:"favorite"`
	Archived    bool              `json:"archived"`
	VisitCount  int64             `json:"visitCount"`
	Tags        []string          `json:"tags"`
	Created     time.Time         `json:"createdAt"`
	Updated     time.Time         `json:"updatedAt"`
	Meta        *metadataResponse `json:"metadata,omitempty"`
}

type metadataResponse struct {
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
	FetchError  string `json:"fetchError,omitempty"`
	FetchCount  int    `json:"fetchCount,omitempty"`
}

func toBookmarkResponse(bookmark domain.Bookmark) bookmarkResponse {
	tags := make([]string, 0, len(bookmark.Tags))
	for _, tag := range bookmark.Tags {
		tags = append(tags, tag.Name)
	}
	response := bookmarkResponse{
		Id:          bookmark.Id,
		URL:         bookmark.URL,
		Title:       bookmark.Title,
		Description: bookmark.Description,
		CategoryId:  bookmark.CategoryId,
		Favorite:    bookmark.Favorite,
		Archived:    bookmark.Archived,
		VisitCount:  bookmark.VisitCount,
		Tags:        tags,
		Created:     bookmark.Created,
		Updated:     bookmark.Updated,
	}
	if bookmark.Meta != (domain.Metadata{}) {
		response.Meta = toMetadataResponse(bookmark.Meta)
	}
	return response
}

func toMetadataResponse(meta domain.Metadata) *metadataResponse {
	return &metadataResponse{
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
		FetchError:  meta.FetchError,
		FetchCount:  meta.FetchCount,
	}
}

type fetchResponse struct {
	URL         string                   `json:"url"`
	FinalURL    string                   `json:"finalUrl,omitempty"`
	Success     bool                     `json:"success"`
	Error       string                   `json:"error,omitempty"`
	FetchTimeMs int64                    `json:"fetchTimeMs"`
	Metadata    *metadataResponse        `json:"metadata,omitempty"`
	Images      []imageCandidateResponse `json:"images"`
}

type imageCandidateResponse struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func fetchResultResponse(result domain.MetadataFetchResult) fetchResponse {
	response := fetchResponse{
		URL:         result.URL,
		FinalURL:    result.FinalURL,
		Success:     result.Success,
		Error:       result.Error,
		FetchTimeMs: result.FetchTimeMs,
		Images:      make([]imageCandidateResponse, 0, len(result.Images)),
	}
	if result.Meta != (domain.Metadata{}) {
		response.Metadata = toMetadataResponse(result.Meta)
	}
	for _, image := range result.Images {
		response.Images = append(response.Images, imageCandidateResponse{
			URL:    image.URL,
			Source: image.Source,
			Width:  image.Width,
			Height: image.Height,
		})
	}
	return response
}

type categoryResponse struct {
	Id        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	ParentId  *int64 `json:"parentId"`
	Level     int    `json:"level"`
	SortOrder int    `json:"sortOrder"`
	Color     string `json:"color,omitempty"`
}

func toCategoryResponse(category domain.Category) categoryResponse {
	return categoryResponse{
		Id:        category.Id,
		Name:      category.Name,
		Slug:      category.Slug,
		ParentId:  category.ParentId,
		Level:     category.Level,
		SortOrder: category.SortOrder,
		Color:     category.Color,
	}
}

type treeNodeResponse struct {
	categoryResponse
	BookmarkCount int                `json:"bookmarkCount"`
	Children      []treeNodeResponse `json:"children"`
}

func toTreeResponse(nodes []*domain.CategoryNode) []treeNodeResponse {
	response := make([]treeNodeResponse, 0, len(nodes))
	for _, node := range nodes {
		response = append(response, treeNodeResponse{
			categoryResponse: toCategoryResponse(node.Category),
			BookmarkCount:    node.BookmarkCount,
			Children:         toTreeResponse(node.Children),
		})
	}
	return response
}
