package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDocument = `<!DOCTYPE html>
<html>
<head>
<title>Page Title</title>
<meta property="og:title" content="OG Title">
<meta name="twitter:title" content="Twitter Title">
<meta property="og:description" content="OG description.">
<meta name="description" content="Standard description.">
<meta property="og:site_name" content="Example Site">
<meta property="og:type" content="article">
<meta property="og:locale" content="en_US">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:site" content="@example">
<meta name="author" content="Jane Roe">
<meta name="keywords" content="go, bookmarks">
<meta property="og:image" content="/images/cover.png">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta name="twitter:image" content="https://cdn.example.com/tw.png">
<link rel="icon" sizes="32x32" href="/icons/32.png">
<link rel="shortcut icon" href="/old-favicon.ico">
</head>
<body></body>
</html>`

func TestExtractFallbackChains(t *testing.T) {
	extraction := Extract(fullDocument, "https://example.com/articles/post")
	meta := extraction.Meta

	assert.Equal(t, "OG Title", meta.Title)
	assert.Equal(t, "OG description.", meta.Description)
	assert.Equal(t, "Example Site", meta.SiteName)
	assert.Equal(t, "article", meta.Type)
	assert.Equal(t, "en_US", meta.Locale)
	assert.Equal(t, "summary_large_image", meta.TwitterCard)
	assert.Equal(t, "@example", meta.TwitterSite)
	assert.Equal(t, "Jane Roe", meta.Author)
	assert.Equal(t, "go, bookmarks", meta.Keywords)
}

func TestExtractTitleFallsBackToTwitterThenTitleTag(t *testing.T) {
	extraction := Extract(`<html><head>
		<meta name="twitter:title" content="Twitter Title">
		<title>Page Title</title>
	</head></html>`, "https://example.com/")
	assert.Equal(t, "Twitter Title", extraction.Meta.Title)

	extraction = Extract(`<html><head><title>Page Title</title></head></html>`, "https://example.com/")
	assert.Equal(t, "Page Title", extraction.Meta.Title)
}

func TestExtractIgnoresEmptyMetaContent(t *testing.T) {
	extraction := Extract(`<html><head>
		<meta property="og:title" content="  ">
		<title>Real Title</title>
	</head></html>`, "https://example.com/")
	assert.Equal(t, "Real Title", extraction.Meta.Title)
}

func TestExtractImageCandidates(t *testing.T) {
	extraction := Extract(fullDocument, "https://example.com/articles/post")
	require.Len(t, extraction.Images, 2)

	first := extraction.Images[0]
	assert.Equal(t, "https://example.com/images/cover.png", first.URL)
	assert.Equal(t, "og_image", first.Source)
	assert.Equal(t, 1200, first.Width)
	assert.Equal(t, 630, first.Height)

	second := extraction.Images[1]
	assert.Equal(t, "https://cdn.example.com/tw.png", second.URL)
	assert.Equal(t, "twitter_image", second.Source)

	assert.Equal(t, first.URL, extraction.Meta.Image)
}

func TestExtractDeduplicatesImages(t *testing.T) {
	extraction := Extract(`<html><head>
		<meta property="og:image" content="https://example.com/a.png">
		<meta name="twitter:image" content="https://example.com/a.png">
	</head></html>`, "https://example.com/")
	require.Len(t, extraction.Images, 1)
	assert.Equal(t, "og_image", extraction.Images[0].Source)
}

func TestExtractFaviconPriority(t *testing.T) {
	extraction := Extract(fullDocument, "https://example.com/articles/post")
	assert.Equal(t, "https://example.com/icons/32.png", extraction.Meta.Favicon)
}

func TestExtractFaviconFallsBackToWellKnownLocation(t *testing.T) {
	extraction := Extract(`<html><head><title>No Icons Here</title></head></html>`, "https://example.com/deep/page")
	assert.Equal(t, "https://example.com/favicon.ico", extraction.Meta.Favicon)
}

func TestExtractTruncatesLongValues(t *testing.T) {
	longTitle := strings.Repeat("x", 300)
	extraction := Extract(`<html><head><meta property="og:title" content="`+longTitle+`"></head></html>`, "https://example.com/")
	assert.Len(t, extraction.Meta.Title, 255)
	assert.True(t, strings.HasSuffix(extraction.Meta.Title, "..."))
}

func TestExtractCollapsesWhitespace(t *testing.T) {
	extraction := Extract(`<html><head><meta property="og:title" content="  Spaced
		Out   Title  "></head></html>`, "https://example.com/")
	assert.Equal(t, "Spaced Out Title", extraction.Meta.Title)
}

func TestExtractDataUrlImagesAreDropped(t *testing.T) {
	extraction := Extract(`<html><head>
		<meta property="og:image" content="data:image/png;base64,AAAA">
	</head></html>`, "https://example.com/")
	assert.Empty(t, extraction.Images)
	assert.Empty(t, extraction.Meta.Image)
}
