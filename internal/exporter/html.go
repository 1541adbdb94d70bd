package exporter

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"
)

const netscapeHeader = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
`

// ExportHtml writes the Netscape bookmark file format understood by every
// major browser's import dialog. Favorites come first in their own folder,
// then the category tree as nested folders, then a folder for bookmarks
// without a category.
func (p *Pipeline) ExportHtml(w io.Writer) error {
	buffered := bufio.NewWriter(w)
	if _, err := buffered.WriteString(netscapeHeader); err != nil {
		return err
	}
	favorites, err := p.store.ListFavoriteBookmarks()
	if err != nil {
		return err
	}
	if len(favorites) > 0 {
		if err := writeFolder(buffered, "Favorites", "", favorites, 1, nil); err != nil {
			return err
		}
	}
	codec := categorytree.New(p.store, p.maxCategoryDepth, p.logger)
	tree, err := codec.BuildTree()
	if err != nil {
		return err
	}
	for _, node := range tree {
		if err := p.writeCategoryFolder(buffered, node, 1); err != nil {
			return err
		}
	}
	uncategorized, err := p.store.ListBookmarksByCategory(nil)
	if err != nil {
		return err
	}
	if len(uncategorized) > 0 {
		if err := writeFolder(buffered, "Uncategorized", "", uncategorized, 1, nil); err != nil {
			return err
		}
	}
	if _, err := buffered.WriteString("</DL><p>\n"); err != nil {
		return err
	}
	return buffered.Flush()
}

func (p *Pipeline) writeCategoryFolder(w *bufio.Writer, node *domain.CategoryNode, depth int) error {
	bookmarks, err := p.store.ListBookmarksByCategory(&node.Id)
	if err != nil {
		return err
	}
	children := func(w *bufio.Writer, depth int) error {
		for _, child := range node.Children {
			if err := p.writeCategoryFolder(w, child, depth); err != nil {
				return err
			}
		}
		return nil
	}
	return writeFolder(w, node.Name, node.Description, bookmarks, depth, children)
}

func writeFolder(w *bufio.Writer, name string, description string, bookmarks []domain.Bookmark, depth int, children func(*bufio.Writer, int) error) error {
	indent := strings.Repeat("    ", depth)
	if _, err := fmt.Fprintf(w, "%s<DT><H3>%s</H3>\n", indent, html.EscapeString(name)); err != nil {
		return err
	}
	if description != "" {
		if _, err := fmt.Fprintf(w, "%s<DD>%s\n", indent, html.EscapeString(description)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s<DL><p>\n", indent); err != nil {
		return err
	}
	for _, bookmark := range bookmarks {
		if err := writeAnchor(w, bookmark, depth+1); err != nil {
			return err
		}
	}
	if children != nil {
		if err := children(w, depth+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s</DL><p>\n", indent)
	return err
}

func writeAnchor(w *bufio.Writer, bookmark domain.Bookmark, depth int) error {
	indent := strings.Repeat("    ", depth)
	var attrs strings.Builder
	fmt.Fprintf(&attrs, `HREF="%s" ADD_DATE="%d" LAST_MODIFIED="%d"`,
		html.EscapeString(bookmark.URL), bookmark.Created.Unix(), bookmark.Updated.Unix())
	if bookmark.Meta.Favicon != "" {
		fmt.Fprintf(&attrs, ` ICON="%s"`, html.EscapeString(bookmark.Meta.Favicon))
	}
	if len(bookmark.Tags) > 0 {
		tagNames := make([]string, 0, len(bookmark.Tags))
		for _, tag := range bookmark.Tags {
			tagNames = append(tagNames, tag.Name)
		}
		fmt.Fprintf(&attrs, ` TAGS="%s"`, html.EscapeString(strings.Join(tagNames, ",")))
	}
	title := bookmark.Title
	if title == "" {
		title = bookmark.URL
	}
	if _, err := fmt.Fprintf(w, "%s<DT><A %s>%s</A>\n", indent, attrs.String(), html.EscapeString(title)); err != nil {
		return err
	}
	description := bookmark.Description
	if description == "" {
		description = bookmark.Meta.Description
	}
	if description != "" {
		if _, err := fmt.Fprintf(w, "%s<DD>%s\n", indent, html.EscapeString(description)); err != nil {
			return err
		}
	}
	return nil
}
