package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Bookmark is a stored bookmark. The URL is not unique by itself: the same
// URL may exist in several categories, duplicate detection is scoped to
// (url, category_id).
type Bookmark struct {
	Id            int64
	URL           string
	URLHash       string
	Title         string
	Description   string
	CategoryId    *int64
	Favorite      bool
	Archived      bool
	VisitCount    int64
	LastVisitedAt *time.Time
	Created       time.Time
	Updated       time.Time
	Meta          Metadata
	Tags          []Tag
}

// Metadata is the block of fields harvested from a page by the metadata
// fetcher. These fields are only ever written by the fetcher.
type Metadata struct {
	Title       string
	Description string
	SiteName    string
	Type        string
	Author      string
	Keywords    string
	Locale      string
	TwitterCard string
	TwitterSite string
	Image       string
	Favicon     string
	HttpStatus  *int
	ContentType string
	FetchError  string
	FetchCount  int
	FetchedAt   *time.Time
}

// HashURL computes the url_hash for a bookmark URL. The hash is a pure
// function of the trimmed URL string, no normalization takes place:
// http://x and https://x hash differently and that is intentional.
func HashURL(url string) string {
	digest := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(digest[:])
}

type Category struct {
	Id          int64
	Name        string
	Slug        string
	ParentId    *int64
	Level       int
	SortOrder   int
	Description string
	Color       string
}

// CategoryNode is a category annotated with its children and a freshly
// computed bookmark count, as produced by the tree codec.
type CategoryNode struct {
	Category
	BookmarkCount int
	Children      []*CategoryNode
}

type Tag struct {
	Id         int64
	Name       string
	Slug       string
	UsageCount int
}

// ImageCandidate is a page image discovered during metadata extraction,
// tagged with the meta tag it came from (og_image, twitter_image).
type ImageCandidate struct {
	URL    string
	Source string
	Width  int
	Height int
}

// MetadataFetchResult is the outcome of a single metadata fetch. It is
// produced fresh per fetch and never persisted as such, relevant fields are
// copied onto the owning bookmark.
type MetadataFetchResult struct {
	URL             string
	FinalURL        string
	Success         bool
	Error           string
	FetchTimeMs     int64
	Meta            Metadata
	Images          []ImageCandidate
	ReadableContent string
}

// ImportResult accumulates the outcome of one import call. Partial success
// (some records imported, some skipped) is the normal case; Success is only
// false when the enclosing transaction was rolled back.
type ImportResult struct {
	Success  bool
	Imported int
	Skipped  int
	Errors   []string
	Error    string
}

// BatchFetchResult summarises a batch metadata fetch run.
type BatchFetchResult struct {
	JobId     string
	Processed int
	Success   int
	Failed    int
	Errors    []string
}

// BatchItem identifies one bookmark to process in a batch metadata fetch.
type BatchItem struct {
	BookmarkId int64
	URL        string
}

type Configuration struct {
	DbFilename             string
	FetchTimeoutSeconds    int
	MaxRedirects           int
	MaxBodyBytes           int
	UserAgent              string
	BatchDelayMillis       int
	InsecureSkipVerify     bool
	CaptureReadableContent bool
	MaxCategoryDepth       int
	ExportChunkSize        int
	BookmarksPageSize      int
	BaseURL                string
	ServerPort             int
	ServerReadTimeoutSecs  int
	ServerWriteTimeoutSecs int
	LogLevel               string
	PrettyLog              bool
}

// Cache is the key/value cache with TTL used by the search layer. The search
// cache itself lives outside this core, only the contract is defined here.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
