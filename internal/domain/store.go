package domain

// Store is the persistence contract consumed by the metadata and
// import/export pipelines. The sqlite implementation lives in
// internal/repository; tests and callers are free to substitute their own.
//
// WithTx runs fn inside a transaction. Nested WithTx calls collapse into the
// outermost transaction, so pipeline code can be composed freely.
type Store interface {
	WithTx(fn func(Store) error) error

	FindBookmarkById(id int64) (*Bookmark, error)
	FindBookmarkByURLHash(hash string) (*Bookmark, error)
	// BookmarkExists reports whether a bookmark with the exact url string
	// already exists in the given category scope (nil meaning uncategorized).
	BookmarkExists(url string, categoryId *int64) (bool, error)
	CreateBookmark(b *Bookmark) (int64, error)
	UpdateBookmarkURL(id int64, url string) error
	DeleteBookmark(id int64) error
	RecordVisit(id int64) error
	SaveFetchedMetadata(id int64, result MetadataFetchResult) error
	RecordFetchFailure(id int64, message string) error
	ListBookmarksByCategory(categoryId *int64) ([]Bookmark, error)
	ListBookmarksChunk(afterId int64, limit int) ([]Bookmark, error)
	ListFavoriteBookmarks() ([]Bookmark, error)
	ListRecentBookmarks(limit int) ([]Bookmark, error)
	ListBookmarksMissingMetadata(limit int) ([]BatchItem, error)
	SearchBookmarks(query string, limit int) ([]Bookmark, error)

	ListCategories() ([]Category, error)
	FindCategoryById(id int64) (*Category, error)
	FindCategoryByName(name string) (*Category, error)
	FindCategoryBySlugAndParent(slugValue string, parentId *int64) (*Category, error)
	CreateCategory(c *Category) (int64, error)
	UpdateCategoryColor(id int64, color string) error
	UpdateCategoryParent(id int64, parentId *int64, level int) error
	ListChildCategories(parentId *int64) ([]Category, error)
	ReassignBookmarkCategory(fromCategoryId int64, toCategoryId *int64) error
	DeleteCategoryRow(id int64) error
	BookmarkCountsByCategory() (map[int64]int, error)

	FindOrCreateTag(name string) (Tag, error)
	AssociateTag(bookmarkId, tagId int64) error
	TagsForBookmark(bookmarkId int64) ([]Tag, error)
	RecomputeTagUsage() error
}
