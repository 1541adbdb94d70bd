package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// parseNetscapeHtml parses the Netscape bookmark format emitted by all major
// browsers. Folder nesting is tracked with a stack of <H3> headings so every
// anchor ends up with its full folder path; the literal root label
// "Bookmarks" is not a real folder and is skipped. The parser is tolerant,
// whatever x/net/html makes of a malformed file is walked as is.
func parseNetscapeHtml(content []byte) ([]importRecord, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("invalid HTML: %w", err)
	}
	var records []importRecord
	var folderStack []string
	var pendingFolder string
	var hasPending bool

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch strings.ToLower(node.Data) {
			case "h3":
				name := strings.TrimSpace(textContent(node))
				if len(folderStack) == 0 && strings.EqualFold(name, "Bookmarks") {
					name = ""
				}
				pendingFolder = name
				hasPending = true
				return
			case "dl":
				if hasPending {
					folderStack = append(folderStack, pendingFolder)
					hasPending = false
					for child := node.FirstChild; child != nil; child = child.NextSibling {
						walk(child)
					}
					folderStack = folderStack[:len(folderStack)-1]
					return
				}
			case "a":
				if record, ok := anchorRecord(node, folderStack); ok {
					records = append(records, record)
				}
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return records, nil
}

func anchorRecord(node *html.Node, folderStack []string) (importRecord, bool) {
	href := attrValue(node, "href")
	if strings.TrimSpace(href) == "" {
		return importRecord{}, false
	}
	record := importRecord{
		URL:          href,
		Title:        strings.TrimSpace(textContent(node)),
		CategoryPath: joinFolderPath(folderStack),
		Favicon:      attrValue(node, "icon"),
		Description:  followingDescription(node),
	}
	if addDate := attrValue(node, "add_date"); addDate != "" {
		if timestamp, err := strconv.ParseInt(addDate, 10, 64); err == nil && timestamp > 0 {
			created := time.Unix(timestamp, 0)
			record.Created = &created
		}
	}
	if tags := attrValue(node, "tags"); tags != "" {
		record.Tags = strings.Split(tags, ",")
	}
	return record, true
}

// followingDescription looks for the <DD> line that Netscape files place
// after a bookmark's <DT><A> entry.
func followingDescription(node *html.Node) string {
	for _, start := range []*html.Node{node, node.Parent} {
		if start == nil {
			continue
		}
		for sibling := start.NextSibling; sibling != nil; sibling = sibling.NextSibling {
			if sibling.Type != html.ElementNode {
				continue
			}
			name := strings.ToLower(sibling.Data)
			if name == "dd" {
				return strings.TrimSpace(textContent(sibling))
			}
			if name == "dt" || name == "dl" {
				break
			}
		}
	}
	return ""
}

func joinFolderPath(folderStack []string) string {
	segments := make([]string, 0, len(folderStack))
	for _, segment := range folderStack {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return strings.Join(segments, "/")
}

func attrValue(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}

func textContent(node *html.Node) string {
	var builder strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(node)
	return builder.String()
}
