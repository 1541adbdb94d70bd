// Package server exposes the pipelines over a small JSON API plus an RSS
// feed of recently added bookmarks.
package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"aggregat4/linkmarks/internal/categorytree"
	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/exporter"
	"aggregat4/linkmarks/internal/importer"
	"aggregat4/linkmarks/internal/metadata"
)

const maxImportBodyBytes = 50 * 1024 * 1024

type Controller struct {
	Store    domain.Store
	Config   domain.Configuration
	Fetcher  *metadata.FetchClient
	Importer *importer.Pipeline
	Exporter *exporter.Pipeline
	// FeedId is the unguessable path segment under which the RSS feed is
	// served, it stands in for per-user feed ids.
	FeedId string
	Logger *zap.Logger
}

func RunServer(controller Controller) {
	e := echo.New()
	// Set server timeouts based on advice from https://blog.cloudflare.com/the-complete-guide-to-golang-net-http-timeouts/#1687428081
	e.Server.ReadTimeout = time.Duration(controller.Config.ServerReadTimeoutSecs) * time.Second
	e.Server.WriteTimeout = time.Duration(controller.Config.ServerWriteTimeoutSecs) * time.Second

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))

	controller.registerRoutes(e)

	port := controller.Config.ServerPort
	e.Logger.Fatal(e.Start(":" + strconv.Itoa(port)))
	// NO MORE CODE HERE, IT WILL NOT BE EXECUTED
}

func (controller *Controller) registerRoutes(e *echo.Echo) {
	if controller.Logger == nil {
		controller.Logger = zap.NewNop()
	}
	e.POST("/api/metadata/fetch", controller.fetchMetadata)
	e.POST("/api/metadata/batch", controller.batchFetchMetadata)
	e.POST("/api/import/:format", controller.importBookmarks)
	e.GET("/api/export/:format", controller.exportBookmarks)
	e.GET("/api/bookmarks", controller.listBookmarks)
	e.POST("/api/bookmarks/:id/visit", controller.recordVisit)
	e.GET("/api/categories/tree", controller.categoryTree)
	e.POST("/api/categories", controller.createCategory)
	e.PUT("/api/categories/:id/parent", controller.moveCategory)
	e.DELETE("/api/categories/:id", controller.deleteCategory)
	e.GET("/feeds/:id", controller.showFeed)
}

func (controller *Controller) handleInternalServerError(c echo.Context, err error) error {
	controller.Logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

type fetchMetadataRequest struct {
	URL        string `json:"url"`
	BookmarkId *int64 `json:"bookmarkId"`
}

// fetchMetadata fetches and extracts metadata for a single URL. When a
// bookmark id is supplied the outcome is also persisted on that bookmark.
func (controller *Controller) fetchMetadata(c echo.Context) error {
	var request fetchMetadataRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if request.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}
	result := controller.Fetcher.Fetch(c.Request().Context(), request.URL)
	if request.BookmarkId != nil {
		var err error
		if result.Success {
			err = controller.Store.SaveFetchedMetadata(*request.BookmarkId, result)
		} else {
			err = controller.Store.RecordFetchFailure(*request.BookmarkId, result.Error)
		}
		if err != nil {
			return controller.handleInternalServerError(c, err)
		}
	}
	return c.JSON(http.StatusOK, fetchResultResponse(result))
}

type batchFetchRequest struct {
	BookmarkIds   []int64 `json:"bookmarkIds"`
	Limit         int     `json:"limit"`
	BudgetSeconds int     `json:"budgetSeconds"`
}

// batchFetchMetadata runs a sequential metadata fetch over the requested
// bookmarks, or over bookmarks still missing metadata when no ids are given.
func (controller *Controller) batchFetchMetadata(c echo.Context) error {
	var request batchFetchRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	limit := request.Limit
	if limit <= 0 {
		limit = 100
	}
	var items []domain.BatchItem
	if len(request.BookmarkIds) > 0 {
		for _, id := range request.BookmarkIds {
			bookmark, err := controller.Store.FindBookmarkById(id)
			if err != nil {
				return controller.handleInternalServerError(c, err)
			}
			if bookmark == nil {
				continue
			}
			items = append(items, domain.BatchItem{BookmarkId: bookmark.Id, URL: bookmark.URL})
		}
	} else {
		var err error
		items, err = controller.Store.ListBookmarksMissingMetadata(limit)
		if err != nil {
			return controller.handleInternalServerError(c, err)
		}
	}
	budget := time.Duration(request.BudgetSeconds) * time.Second
	result := controller.Fetcher.FetchAll(c.Request().Context(), items, budget, nil)
	return c.JSON(http.StatusOK, result)
}

func (controller *Controller) importBookmarks(c echo.Context) error {
	format := c.Param("format")
	switch format {
	case importer.FormatJson, importer.FormatHtml, importer.FormatCsv:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported import format: " + format})
	}
	content, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBodyBytes))
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	result := controller.Importer.Import(content, format)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}

func (controller *Controller) exportBookmarks(c echo.Context) error {
	format := c.Param("format")
	switch format {
	case exporter.FormatJson, exporter.FormatCsv, exporter.FormatHtml:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unsupported export format: " + format})
	}
	c.Response().Header().Set(echo.HeaderContentType, exporter.MimeType(format))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exporter.Filename(format)+`"`)
	c.Response().WriteHeader(http.StatusOK)
	var err error
	switch format {
	case exporter.FormatJson:
		err = controller.Exporter.ExportJson(c.Response().Writer)
	case exporter.FormatCsv:
		err = controller.Exporter.ExportCsv(c.Response().Writer)
	case exporter.FormatHtml:
		err = controller.Exporter.ExportHtml(c.Response().Writer)
	}
	if err != nil {
		// headers are already out, all we can do is log and cut the stream
		controller.Logger.Error("export failed", zap.String("format", format), zap.Error(err))
	}
	return nil
}

func (controller *Controller) listBookmarks(c echo.Context) error {
	limit := controller.Config.BookmarksPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	var bookmarks []domain.Bookmark
	var err error
	switch {
	case c.QueryParam("q") != "":
		bookmarks, err = controller.Store.SearchBookmarks(c.QueryParam("q"), limit)
	case c.QueryParam("favorite") == "true":
		bookmarks, err = controller.Store.ListFavoriteBookmarks()
	case c.QueryParam("category") != "":
		categoryId, parseErr := strconv.ParseInt(c.QueryParam("category"), 10, 64)
		if parseErr != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid category id"})
		}
		bookmarks, err = controller.Store.ListBookmarksByCategory(&categoryId)
	default:
		bookmarks, err = controller.Store.ListRecentBookmarks(limit)
	}
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	response := make([]bookmarkResponse, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		response = append(response, toBookmarkResponse(bookmark))
	}
	return c.JSON(http.StatusOK, response)
}

func (controller *Controller) recordVisit(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid bookmark id"})
	}
	bookmark, err := controller.Store.FindBookmarkById(id)
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	if bookmark == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "bookmark not found"})
	}
	if err := controller.Store.RecordVisit(id); err != nil {
		return controller.handleInternalServerError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *Controller) categoryTree(c echo.Context) error {
	codec := categorytree.New(controller.Store, controller.Config.MaxCategoryDepth, controller.Logger)
	tree, err := codec.BuildTree()
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	return c.JSON(http.StatusOK, toTreeResponse(tree))
}

type createCategoryRequest struct {
	// Path is a slash separated category path, intermediate categories are
	// created as needed.
	Path string `json:"path"`
}

func (controller *Controller) createCategory(c echo.Context) error {
	var request createCategoryRequest
	if err := c.Bind(&request); err != nil || request.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "path is required"})
	}
	codec := categorytree.New(controller.Store, controller.Config.MaxCategoryDepth, controller.Logger)
	categoryId, err := codec.ResolveOrCreatePath(request.Path, "/")
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	category, err := controller.Store.FindCategoryById(categoryId)
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	return c.JSON(http.StatusCreated, toCategoryResponse(*category))
}

type moveCategoryRequest struct {
	ParentId *int64 `json:"parentId"`
}

func (controller *Controller) moveCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid category id"})
	}
	var request moveCategoryRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	codec := categorytree.New(controller.Store, controller.Config.MaxCategoryDepth, controller.Logger)
	if err := codec.Move(id, request.ParentId); err != nil {
		if err == categorytree.ErrInvalidMove {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return controller.handleInternalServerError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *Controller) deleteCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid category id"})
	}
	codec := categorytree.New(controller.Store, controller.Config.MaxCategoryDepth, controller.Logger)
	if err := codec.SafeDelete(id); err != nil {
		return controller.handleInternalServerError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *Controller) showFeed(c echo.Context) error {
	if c.Param("id") != controller.FeedId {
		return c.String(http.StatusNotFound, "feed not found")
	}
	bookmarks, err := controller.Store.ListRecentBookmarks(controller.Config.BookmarksPageSize)
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	feed := &feeds.Feed{
		Title:       "Linkmarks",
		Link:        &feeds.Link{Href: controller.Config.BaseURL + "/feeds/" + controller.FeedId},
		Description: "Recently added bookmarks.",
		Created:     time.Now(),
	}
	for _, bookmark := range bookmarks {
		description := bookmark.Description
		if description == "" {
			description = bookmark.Meta.Description
		}
		feed.Add(&feeds.Item{
			Title:       bookmark.Title,
			Link:        &feeds.Link{Href: bookmark.URL},
			Description: description,
			Id:          bookmark.URL + "#" + strconv.FormatInt(bookmark.Created.Unix(), 10),
			Created:     bookmark.Created,
		})
	}
	rss, err := feed.ToRss()
	if err != nil {
		return controller.handleInternalServerError(c, err)
	}
	c.Response().Header().Set("Content-Type", "application/rss+xml")
	return c.String(http.StatusOK, rss)
}
