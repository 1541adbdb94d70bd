package metadata

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/urlresolve"

	readability "github.com/go-shiori/go-readability"
	"github.com/gogs/chardet"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const (
	defaultFetchTimeoutSeconds = 15
	defaultMaxRedirects        = 5
	defaultMaxBodyBytes        = 2 * 1024 * 1024
	defaultBatchDelayMillis    = 100
	defaultUserAgent           = "Mozilla/5.0 (compatible; linkmarks/1.0; +https://github.com/aggregat4/linkmarks)"
	maxStoredErrorLength       = 255
)

// FetchClient performs metadata fetches against remote pages. A fetch never
// panics or returns a Go error for remote failures, every outcome is encoded
// in the MetadataFetchResult so batch processing can always continue.
type FetchClient struct {
	store     domain.Store
	config    domain.Configuration
	client    *http.Client
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

func NewFetchClient(store domain.Store, config domain.Configuration, logger *zap.Logger) *FetchClient {
	if config.FetchTimeoutSeconds <= 0 {
		config.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = defaultMaxRedirects
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}
	if config.BatchDelayMillis <= 0 {
		config.BatchDelayMillis = defaultBatchDelayMillis
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// use a custom http client so we can set a timeout to make sure we don't hang indefinitely on foreign servers
	client := &http.Client{
		Timeout: time.Duration(config.FetchTimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		},
	}
	if config.InsecureSkipVerify {
		// debug/insecure mode only, never enabled in normal operation
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &FetchClient{
		store:     store,
		config:    config,
		client:    client,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Fetch performs a single metadata fetch. The wall clock duration is always
// recorded, whatever the outcome.
func (c *FetchClient) Fetch(ctx context.Context, rawURL string) domain.MetadataFetchResult {
	start := time.Now()
	result := c.fetch(ctx, rawURL)
	result.FetchTimeMs = time.Since(start).Milliseconds()
	return result
}

func (c *FetchClient) fetch(ctx context.Context, rawURL string) domain.MetadataFetchResult {
	result := domain.MetadataFetchResult{URL: rawURL}
	if !urlresolve.IsValidHttpUrl(rawURL) {
		result.Error = "Invalid URL format"
		return result
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(rawURL), nil)
	if err != nil {
		result.Error = "Invalid URL format"
		return result
	}
	request.Header.Set("User-Agent", c.config.UserAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	request.Header.Set("Accept-Language", "en-US,en;q=0.9")

	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Debug("metadata fetch transport failure", zap.String("url", rawURL), zap.Error(err))
		result.Error = "Failed to fetch URL (timeout or connection error)"
		return result
	}
	defer response.Body.Close()

	result.FinalURL = response.Request.URL.String()
	status := response.StatusCode
	result.Meta.HttpStatus = &status
	contentType := response.Header.Get("Content-Type")
	result.Meta.ContentType = contentType

	body, err := io.ReadAll(io.LimitReader(response.Body, int64(c.config.MaxBodyBytes)))
	if err != nil {
		result.Error = "Failed to fetch URL (timeout or connection error)"
		return result
	}

	if status >= 400 {
		result.Error = fmt.Sprintf("HTTP %d error", status)
		return result
	}

	if !isHtmlContentType(contentType) {
		// best effort: no tags to extract, fall back to the host name
		result.Error = fmt.Sprintf("Unsupported content type: %s", contentType)
		result.Meta.Title = hostTitle(result.FinalURL)
		return result
	}

	decoded := decodeBody(body, contentType)
	extraction := Extract(decoded, result.FinalURL)
	extraction.Meta.HttpStatus = result.Meta.HttpStatus
	extraction.Meta.ContentType = result.Meta.ContentType
	result.Meta = extraction.Meta
	result.Images = extraction.Images
	result.Success = true

	if c.config.CaptureReadableContent {
		result.ReadableContent = c.extractReadableContent(decoded, result.FinalURL)
	}
	return result
}

// extractReadableContent runs the readability extraction over the already
// decoded document and sanitizes the result before it is stored.
func (c *FetchClient) extractReadableContent(decoded string, finalURL string) string {
	parsedURL, err := url.Parse(finalURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(decoded), parsedURL)
	if err != nil {
		c.logger.Debug("readability extraction failed", zap.String("url", finalURL), zap.Error(err))
		return ""
	}
	return c.sanitizer.Sanitize(article.Content)
}

// FetchAll processes bookmarks sequentially with a small delay between
// requests, remote servers are not ours to hammer. An optional budget bounds
// the overall wall clock time; both the budget and context cancellation are
// polled at the loop boundary only.
func (c *FetchClient) FetchAll(ctx context.Context, items []domain.BatchItem, budget time.Duration, progress func(processed, total int)) domain.BatchFetchResult {
	result := domain.BatchFetchResult{JobId: uuid.New().String(), Errors: make([]string, 0)}
	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}
	delay := time.Duration(c.config.BatchDelayMillis) * time.Millisecond
	for i, item := range items {
		if ctx.Err() != nil {
			c.logger.Info("batch fetch cancelled", zap.String("jobId", result.JobId), zap.Int("processed", result.Processed))
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			c.logger.Info("batch fetch budget exhausted", zap.String("jobId", result.JobId), zap.Int("processed", result.Processed))
			break
		}
		if i > 0 {
			time.Sleep(delay)
		}
		fetchResult := c.Fetch(ctx, item.URL)
		result.Processed++
		if fetchResult.Success {
			if err := c.store.SaveFetchedMetadata(item.BookmarkId, fetchResult); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("bookmark %d: %v", item.BookmarkId, err))
				continue
			}
			result.Success++
		} else {
			message := truncateError(fetchResult.Error)
			if err := c.store.RecordFetchFailure(item.BookmarkId, message); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("bookmark %d: %v", item.BookmarkId, err))
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("bookmark %d: %s", item.BookmarkId, message))
		}
		if progress != nil {
			progress(result.Processed, len(items))
		}
	}
	return result
}

func isHtmlContentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.Contains(mediaType, "html")
}

// decodeBody converts the response body to UTF-8. Detection order: charset
// from the Content-Type header, then the HTML meta charset prescan, then
// statistical detection, and finally the UTF-8 compatible default.
func decodeBody(body []byte, contentType string) string {
	encoding, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" {
		// DetermineEncoding found neither a header charset nor a meta tag and
		// fell back to its default, try statistical detection instead
		detector := chardet.NewHtmlDetector()
		if detected, err := detector.DetectBest(body); err == nil && detected.Confidence > 50 {
			if detectedEncoding, err := htmlindex.Get(strings.ToLower(detected.Charset)); err == nil {
				encoding = detectedEncoding
			}
		}
	}
	decoded, _, err := transform.Bytes(encoding.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func truncateError(message string) string {
	runes := []rune(message)
	if len(runes) <= maxStoredErrorLength {
		return message
	}
	return string(runes[:maxStoredErrorLength-3]) + "..."
}
