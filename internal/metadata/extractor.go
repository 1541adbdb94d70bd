// Package metadata fetches pages and harvests their Open Graph, Twitter
// Card and standard meta tags into bookmark metadata.
package metadata

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/urlresolve"

	"github.com/PuerkitoBio/goquery"
)

// Field length limits applied to every extracted value. A truncated value
// ends in "..." and the limit includes that marker.
const (
	maxTitleLength       = 255
	maxDescriptionLength = 1000
	maxGenericLength     = 255
	maxKeywordsLength    = 500
)

const (
	imageSourceOpenGraph = "og_image"
	imageSourceTwitter   = "twitter_image"
)

// Extraction is the parse-only part of a metadata fetch.
type Extraction struct {
	Meta   domain.Metadata
	Images []domain.ImageCandidate
}

// Extract parses an HTML document and fills the metadata block via an
// ordered fallback chain per field: Open Graph first, then Twitter Card,
// then standard tags, first non-empty value wins. Malformed HTML is parsed
// best effort, whatever partial document comes out is used as is.
func Extract(htmlContent string, baseURL string) Extraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Extraction{Meta: domain.Metadata{Favicon: fallbackFavicon(baseURL)}}
	}

	var meta domain.Metadata
	meta.Title = clean(firstNonEmpty(
		metaProperty(doc, "og:title"),
		metaAny(doc, "twitter:title"),
		doc.Find("title").First().Text()), maxTitleLength)
	meta.Description = clean(firstNonEmpty(
		metaProperty(doc, "og:description"),
		metaName(doc, "description"),
		metaAny(doc, "twitter:description")), maxDescriptionLength)
	meta.SiteName = clean(metaProperty(doc, "og:site_name"), maxGenericLength)
	meta.Type = clean(metaProperty(doc, "og:type"), maxGenericLength)
	meta.Locale = clean(metaProperty(doc, "og:locale"), maxGenericLength)
	meta.TwitterCard = clean(metaAny(doc, "twitter:card"), maxGenericLength)
	meta.TwitterSite = clean(metaAny(doc, "twitter:site"), maxGenericLength)
	meta.Author = clean(firstNonEmpty(
		metaName(doc, "author"),
		metaProperty(doc, "article:author")), maxGenericLength)
	meta.Keywords = clean(metaName(doc, "keywords"), maxKeywordsLength)

	images := collectImages(doc, baseURL)
	if len(images) > 0 {
		meta.Image = images[0].URL
	}
	meta.Favicon = extractFavicon(doc, baseURL)

	return Extraction{Meta: meta, Images: images}
}

// metaProperty returns the first non-empty content of a meta tag matched by
// its property attribute.
func metaProperty(doc *goquery.Document, key string) string {
	return metaContent(doc, "property", key)
}

func metaName(doc *goquery.Document, key string) string {
	return metaContent(doc, "name", key)
}

// metaAny checks both the name and property attribute forms, Twitter Card
// tags appear in the wild as either.
func metaAny(doc *goquery.Document, key string) string {
	if value := metaContent(doc, "name", key); value != "" {
		return value
	}
	return metaContent(doc, "property", key)
}

func metaContent(doc *goquery.Document, attribute, key string) string {
	var value string
	doc.Find(fmt.Sprintf("meta[%s='%s']", attribute, key)).EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		if content, ok := selection.Attr("content"); ok && strings.TrimSpace(content) != "" {
			value = content
			return false
		}
		return true
	})
	return value
}

// imageSelectors lists the meta tags scanned for image candidates, in
// priority order.
var imageSelectors = []struct {
	attribute string
	key       string
	source    string
}{
	{"property", "og:image", imageSourceOpenGraph},
	{"property", "og:image:url", imageSourceOpenGraph},
	{"property", "og:image:secure_url", imageSourceOpenGraph},
	{"name", "twitter:image", imageSourceTwitter},
	{"property", "twitter:image", imageSourceTwitter},
	{"name", "twitter:image:src", imageSourceTwitter},
	{"property", "twitter:image:src", imageSourceTwitter},
}

func collectImages(doc *goquery.Document, baseURL string) []domain.ImageCandidate {
	images := make([]domain.ImageCandidate, 0)
	seen := make(map[string]bool)
	for _, selector := range imageSelectors {
		doc.Find(fmt.Sprintf("meta[%s='%s']", selector.attribute, selector.key)).Each(func(_ int, selection *goquery.Selection) {
			content, ok := selection.Attr("content")
			if !ok {
				return
			}
			resolved := urlresolve.Resolve(content, baseURL)
			if resolved == "" || !urlresolve.IsValidHttpUrl(resolved) || seen[resolved] {
				return
			}
			seen[resolved] = true
			images = append(images, domain.ImageCandidate{URL: resolved, Source: selector.source})
		})
	}
	if len(images) > 0 && images[0].Source == imageSourceOpenGraph {
		images[0].Width = metaInt(doc, "og:image:width")
		images[0].Height = metaInt(doc, "og:image:height")
	}
	return images
}

func metaInt(doc *goquery.Document, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(metaProperty(doc, key)))
	if err != nil {
		return 0
	}
	return value
}

// faviconSelectors is the discovery priority for favicon link tags.
var faviconSelectors = []string{
	"link[rel='icon'][sizes='32x32']",
	"link[rel='icon'][sizes='16x16']",
	"link[rel='icon']",
	"link[rel='shortcut icon']",
	"link[rel*='apple-touch-icon']",
	"link[rel='apple-touch-icon-precomposed']",
	"link[rel='mask-icon']",
}

func extractFavicon(doc *goquery.Document, baseURL string) string {
	for _, selector := range faviconSelectors {
		var favicon string
		doc.Find(selector).EachWithBreak(func(_ int, selection *goquery.Selection) bool {
			href, ok := selection.Attr("href")
			if !ok {
				return true
			}
			if resolved := urlresolve.Resolve(href, baseURL); resolved != "" {
				favicon = resolved
				return false
			}
			return true
		})
		if favicon != "" {
			return favicon
		}
	}
	return fallbackFavicon(baseURL)
}

// fallbackFavicon guesses /favicon.ico at the site root, without verifying
// that it exists.
func fallbackFavicon(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/favicon.ico"
}

// hostTitle derives a title from the URL host, the fallback for documents
// that are not HTML at all.
func hostTitle(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// clean collapses whitespace, trims and truncates a harvested value. Entity
// decoding already happened during HTML parsing.
func clean(value string, maxLength int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= maxLength {
		return value
	}
	return string(runes[:maxLength-3]) + "..."
}
