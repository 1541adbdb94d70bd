package importer

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/repository"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Pipeline, *repository.Store) {
	store := &repository.Store{}
	err := store.InitAndVerifyDb(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return New(store, 10, nil), store
}

func TestImportFlatJson(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Import([]byte(`[
		{"url": "https://example.com/a", "title": "A", "category": "Work", "tags": ["go", "web"], "created_at": "2021-06-01T12:00:00Z"},
		{"url": "https://example.com/b", "name": "B", "is_favorite": true}
	]`), FormatJson)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	a, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/a"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "A", a.Title)
	assert.Equal(t, time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC).Unix(), a.Created.Unix())
	require.NotNil(t, a.CategoryId)
	category, err := store.FindCategoryById(*a.CategoryId)
	require.NoError(t, err)
	assert.Equal(t, "Work", category.Name)
	tags, err := store.TagsForBookmark(a.Id)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, "web", tags[1].Name)

	b, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/b"))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "B", b.Title)
	assert.True(t, b.Favorite)
}

func TestImportSkipsDuplicatesOnReimport(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	content := []byte(`[{"url": "https://example.com/a", "title": "A"}]`)

	first := pipeline.Import(content, FormatJson)
	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 0, first.Skipped)

	second := pipeline.Import(content, FormatJson)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Skipped)
	// duplicates are skipped silently, only bad URLs produce error messages
	assert.Empty(t, second.Errors)
}

func TestImportSameUrlInDifferentCategories(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Import([]byte(`[
		{"url": "https://example.com/a", "title": "A", "category": "Work"},
		{"url": "https://example.com/a", "title": "A", "category": "Home"}
	]`), FormatJson)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	chunk, err := store.ListBookmarksChunk(0, 10)
	require.NoError(t, err)
	assert.Len(t, chunk, 2)
}

func TestImportRejectsInvalidUrls(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	result := pipeline.Import([]byte(`[
		{"url": "", "title": "empty"},
		{"url": "notaurl", "title": "bad"},
		{"url": "https://example.com/ok", "title": "ok"}
	]`), FormatJson)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Invalid URL: empty", result.Errors[0])
	assert.Equal(t, "Invalid URL: notaurl", result.Errors[1])
}

func TestImportTruncatesLongTitles(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	longTitle := strings.Repeat("t", 300)

	result := pipeline.Import([]byte(`[{"url": "https://example.com/a", "title": "`+longTitle+`"}]`), FormatJson)
	require.Equal(t, 1, result.Imported)

	bookmark, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/a"))
	require.NoError(t, err)
	assert.Len(t, []rune(bookmark.Title), 255)
	assert.True(t, strings.HasSuffix(bookmark.Title, "..."))
}

func TestImportCollectionsShape(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Import([]byte(`{
		"collections": [
			{"id": 10, "name": "Root", "color": "#ff0000", "links": [
				{"url": "https://example.com/root", "name": "Root Link", "tags": [{"name": "go"}]}
			]},
			{"id": 11, "name": "Child", "parentId": 10, "links": [
				{"url": "https://example.com/child", "name": "Child Link"}
			]}
		],
		"pinnedLinks": [{"url": "https://example.com/root"}]
	}`), FormatJson)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Imported)

	root, err := store.FindCategoryByName("Root")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Nil(t, root.ParentId)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, "#ff0000", root.Color)

	child, err := store.FindCategoryByName("Child")
	require.NoError(t, err)
	require.NotNil(t, child)
	require.NotNil(t, child.ParentId)
	assert.Equal(t, root.Id, *child.ParentId)
	assert.Equal(t, 1, child.Level)

	pinned, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/root"))
	require.NoError(t, err)
	assert.True(t, pinned.Favorite)
	require.NotNil(t, pinned.CategoryId)
	assert.Equal(t, root.Id, *pinned.CategoryId)
}

func TestImportCollectionsMatchExistingCategoriesByName(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	existingId, err := store.CreateCategory(&domain.Category{Name: "Root"})
	require.NoError(t, err)

	result := pipeline.Import([]byte(`{
		"collections": [
			{"id": 1, "name": "Root", "color": "#00ff00", "links": [
				{"url": "https://example.com/a", "name": "A"}
			]}
		]
	}`), FormatJson)
	require.True(t, result.Success)

	categories, err := store.ListCategories()
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, existingId, categories[0].Id)
	assert.Equal(t, "#00ff00", categories[0].Color)
}

func TestImportCollectionsUnderExistingNestedCategory(t *testing.T) {
	pipeline, store := newTestPipeline(t)
	deepId, err := categorytree.New(store, 10, nil).ResolveOrCreatePath("Outer/Deep", "/")
	require.NoError(t, err)

	// Grandchild deliberately precedes its parent so its level has to be
	// corrected again when Child is reparented under the existing tree.
	result := pipeline.Import([]byte(`{
		"collections": [
			{"id": 3, "name": "Grandchild", "parentId": 2, "links": []},
			{"id": 1, "name": "Deep", "links": []},
			{"id": 2, "name": "Child", "parentId": 1, "links": []}
		]
	}`), FormatJson)
	require.True(t, result.Success)

	deep, err := store.FindCategoryById(deepId)
	require.NoError(t, err)
	require.NotNil(t, deep)
	assert.Equal(t, 1, deep.Level)

	child, err := store.FindCategoryByName("Child")
	require.NoError(t, err)
	require.NotNil(t, child)
	require.NotNil(t, child.ParentId)
	assert.Equal(t, deep.Id, *child.ParentId)
	assert.Equal(t, deep.Level+1, child.Level)

	grandchild, err := store.FindCategoryByName("Grandchild")
	require.NoError(t, err)
	require.NotNil(t, grandchild)
	require.NotNil(t, grandchild.ParentId)
	assert.Equal(t, child.Id, *grandchild.ParentId)
	assert.Equal(t, child.Level+1, grandchild.Level)
}

func TestImportCollectionsWithUnsetDepthLimit(t *testing.T) {
	_, store := newTestPipeline(t)
	pipeline := New(store, 0, nil)

	result := pipeline.Import([]byte(`{
		"collections": [
			{"id": 1, "name": "Top", "links": []},
			{"id": 2, "name": "Nested", "parentId": 1, "links": [
				{"url": "https://example.com/nested", "name": "Nested Link"}
			]}
		]
	}`), FormatJson)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, 1, result.Imported)

	nested, err := store.FindCategoryByName("Nested")
	require.NoError(t, err)
	require.NotNil(t, nested)
	assert.Equal(t, 1, nested.Level)
}

func TestImportNetscapeHtml(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Import([]byte(`<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
    <DT><H3>Work</H3>
    <DL><p>
        <DT><A HREF="https://example.com/work" ADD_DATE="1622548800" TAGS="go,web">Work Link</A>
        <DD>A description line.
        <DT><H3>Projects</H3>
        <DL><p>
            <DT><A HREF="https://example.com/project">Project Link</A>
        </DL><p>
    </DL><p>
    <DT><A HREF="https://example.com/loose">Loose Link</A>
</DL><p>`), FormatHtml)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Imported)

	work, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/work"))
	require.NoError(t, err)
	require.NotNil(t, work)
	assert.Equal(t, "Work Link", work.Title)
	assert.Equal(t, "A description line.", work.Description)
	assert.Equal(t, int64(1622548800), work.Created.Unix())
	tags, err := store.TagsForBookmark(work.Id)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	project, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/project"))
	require.NoError(t, err)
	require.NotNil(t, project.CategoryId)
	path, err := categoryPathFor(store, *project.CategoryId)
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects", path)

	loose, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/loose"))
	require.NoError(t, err)
	assert.Nil(t, loose.CategoryId)
}

func TestImportCsv(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	content := "\xef\xbb\xbfurl,title,description,category,tags,is_favorite,created_at\n" +
		"https://example.com/a,A,First one,Work/Projects,\"go,web\",true,2021-06-01T12:00:00Z\n" +
		"https://example.com/b,B,,,,false,\n"

	result := pipeline.Import([]byte(content), FormatCsv)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Imported)

	a, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/a"))
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "First one", a.Description)
	assert.True(t, a.Favorite)
	require.NotNil(t, a.CategoryId)
	path, err := categoryPathFor(store, *a.CategoryId)
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects", path)

	b, err := store.FindBookmarkByURLHash(domain.HashURL("https://example.com/b"))
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.False(t, b.Favorite)
	assert.Nil(t, b.CategoryId)
}

func TestImportUnknownFormatRollsBack(t *testing.T) {
	pipeline, _ := newTestPipeline(t)

	result := pipeline.Import([]byte("whatever"), "xml")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unsupported import format")
}

func TestImportInvalidJsonRollsBack(t *testing.T) {
	pipeline, store := newTestPipeline(t)

	result := pipeline.Import([]byte(`{"collections": [`), FormatJson)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	chunk, err := store.ListBookmarksChunk(0, 10)
	require.NoError(t, err)
	assert.Empty(t, chunk)
}

// categoryPathFor renders the ancestor chain of a category for assertions.
func categoryPathFor(store domain.Store, categoryId int64) (string, error) {
	var segments []string
	current := &categoryId
	for current != nil {
		category, err := store.FindCategoryById(*current)
		if err != nil {
			return "", err
		}
		segments = append([]string{category.Name}, segments...)
		current = category.ParentId
	}
	return strings.Join(segments, "/"), nil
}
