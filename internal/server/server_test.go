package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/exporter"
	"aggregat4/linkmarks/internal/importer"
	"aggregat4/linkmarks/internal/metadata"
	"aggregat4/linkmarks/internal/repository"

	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	echo  *echo.Echo
	store *repository.Store
}

func setupTestServer(t *testing.T) *testServer {
	store := &repository.Store{}
	err := store.InitAndVerifyDb(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	config := domain.Configuration{
		FetchTimeoutSeconds: 5,
		MaxCategoryDepth:    10,
		ExportChunkSize:     100,
		BookmarksPageSize:   10,
		BaseURL:             "http://localhost:1323",
		ServerPort:          1323,
	}
	controller := Controller{
		Store:    store,
		Config:   config,
		Fetcher:  metadata.NewFetchClient(store, config, nil),
		Importer: importer.New(store, config.MaxCategoryDepth, nil),
		Exporter: exporter.New(store, config.ExportChunkSize, config.MaxCategoryDepth, nil),
		FeedId:   "test-feed-id",
		Logger:   nil,
	}
	e := echo.New()
	controller.registerRoutes(e)
	return &testServer{echo: e, store: store}
}

func (server *testServer) request(method, target, body, contentType string) *httptest.ResponseRecorder {
	var request *http.Request
	if body != "" {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set(echo.HeaderContentType, contentType)
	} else {
		request = httptest.NewRequest(method, target, nil)
	}
	recorder := httptest.NewRecorder()
	server.echo.ServeHTTP(recorder, request)
	return recorder
}

func TestImportEndpoint(t *testing.T) {
	server := setupTestServer(t)

	recorder := server.request(http.MethodPost, "/api/import/json",
		`[{"url": "https://example.com/a", "title": "A", "category": "Work"}]`, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, recorder.Code)

	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Imported)
}

func TestImportEndpointRejectsUnknownFormat(t *testing.T) {
	server := setupTestServer(t)

	recorder := server.request(http.MethodPost, "/api/import/xml", "<bookmarks/>", echo.MIMETextXML)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestExportEndpointSetsDownloadHeaders(t *testing.T) {
	server := setupTestServer(t)
	_, err := server.store.CreateBookmark(&domain.Bookmark{URL: "https://example.com/a", Title: "A"})
	require.NoError(t, err)

	recorder := server.request(http.MethodGet, "/api/export/csv", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv; charset=utf-8", recorder.Header().Get(echo.HeaderContentType))
	disposition := recorder.Header().Get(echo.HeaderContentDisposition)
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "bookmarks_")
	assert.Contains(t, disposition, ".csv")
	assert.Contains(t, recorder.Body.String(), "https://example.com/a")

	recorder = server.request(http.MethodGet, "/api/export/html", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, strings.HasPrefix(recorder.Body.String(), "<!DOCTYPE NETSCAPE-Bookmark-file-1>"))
}

func TestCategoryEndpoints(t *testing.T) {
	server := setupTestServer(t)

	recorder := server.request(http.MethodPost, "/api/categories", `{"path": "Work/Projects"}`, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created struct {
		Id       int64  `json:"id"`
		Name     string `json:"name"`
		ParentId *int64 `json:"parentId"`
		Level    int    `json:"level"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, "Projects", created.Name)
	assert.Equal(t, 1, created.Level)

	recorder = server.request(http.MethodGet, "/api/categories/tree", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var tree []struct {
		Name     string `json:"name"`
		Children []struct {
			Name string `json:"name"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &tree))
	require.Len(t, tree, 1)
	assert.Equal(t, "Work", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "Projects", tree[0].Children[0].Name)

	// moving Work under its own child is a conflict
	require.NotNil(t, created.ParentId)
	recorder = server.request(http.MethodPut, "/api/categories/"+strconv.FormatInt(*created.ParentId, 10)+"/parent",
		`{"parentId": `+strconv.FormatInt(created.Id, 10)+`}`, echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	recorder = server.request(http.MethodDelete, "/api/categories/"+strconv.FormatInt(created.Id, 10), "", "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestVisitEndpoint(t *testing.T) {
	server := setupTestServer(t)
	id, err := server.store.CreateBookmark(&domain.Bookmark{URL: "https://example.com/a", Title: "A"})
	require.NoError(t, err)

	recorder := server.request(http.MethodPost, "/api/bookmarks/"+strconv.FormatInt(id, 10)+"/visit", "", "")
	require.Equal(t, http.StatusNoContent, recorder.Code)

	bookmark, err := server.store.FindBookmarkById(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bookmark.VisitCount)

	recorder = server.request(http.MethodPost, "/api/bookmarks/99999/visit", "", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListBookmarksEndpoint(t *testing.T) {
	server := setupTestServer(t)
	_, err := server.store.CreateBookmark(&domain.Bookmark{URL: "https://example.com/fav", Title: "Fav", Favorite: true})
	require.NoError(t, err)
	_, err = server.store.CreateBookmark(&domain.Bookmark{URL: "https://example.com/plain", Title: "Plain"})
	require.NoError(t, err)

	recorder := server.request(http.MethodGet, "/api/bookmarks?favorite=true", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var bookmarks []struct {
		URL      string `json:"url"`
		Favorite bool   `json:"favorite"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &bookmarks))
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "https://example.com/fav", bookmarks[0].URL)

	recorder = server.request(http.MethodGet, "/api/bookmarks", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &bookmarks))
	assert.Len(t, bookmarks, 2)
}

func TestFeedEndpoint(t *testing.T) {
	server := setupTestServer(t)
	_, err := server.store.CreateBookmark(&domain.Bookmark{URL: "https://example.com/a", Title: "Feed Item"})
	require.NoError(t, err)

	recorder := server.request(http.MethodGet, "/feeds/test-feed-id", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/rss+xml", recorder.Header().Get(echo.HeaderContentType))
	assert.Contains(t, recorder.Body.String(), "Feed Item")

	recorder = server.request(http.MethodGet, "/feeds/wrong-id", "", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
