// Package urlresolve turns the URL fragments found in HTML documents
// (relative paths, protocol-relative references) into absolute URLs. It is
// pure string and URL-part manipulation, no network access happens here.
package urlresolve

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

var absoluteHttpRegex = regexp.MustCompile(`(?i)^https?://`)

// Resolve resolves candidate against baseURL and returns an absolute URL, or
// the empty string when the candidate cannot or must not be resolved (blank
// input, data: URIs, unparseable base).
func Resolve(candidate string, baseURL string) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return ""
	}
	if absoluteHttpRegex.MatchString(candidate) {
		return candidate
	}
	// data URIs are never followed
	if strings.HasPrefix(candidate, "data:") {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ""
	}
	if strings.HasPrefix(candidate, "//") {
		return base.Scheme + ":" + candidate
	}
	if strings.HasPrefix(candidate, "/") {
		return base.Scheme + "://" + base.Host + candidate
	}
	// relative to the directory of the base path
	dir := path.Dir(base.Path)
	if dir == "/" || dir == "." {
		dir = ""
	}
	return base.Scheme + "://" + base.Host + dir + "/" + candidate
}

// IsValidHttpUrl reports whether raw parses as an absolute URL with an http
// or https scheme.
func IsValidHttpUrl(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
