package repository

import (
	"database/sql"
	"time"

	"aggregat4/linkmarks/internal/domain"
)

const bookmarkColumns = `id, url, url_hash, title, description, category_id, favorite, archived,
	visit_count, last_visited_at, created, updated,
	meta_title, meta_description, meta_site_name, meta_type, meta_author, meta_keywords,
	meta_locale, meta_twitter_card, meta_twitter_site, meta_image, favicon,
	http_status, content_type, meta_fetch_error, meta_fetch_count, meta_fetched_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row rowScanner) (domain.Bookmark, error) {
	var b domain.Bookmark
	var categoryId, lastVisitedAt, httpStatus, fetchedAt sql.NullInt64
	var favorite, archived int
	var created, updated int64
	err := row.Scan(&b.Id, &b.URL, &b.URLHash, &b.Title, &b.Description, &categoryId, &favorite, &archived,
		&b.VisitCount, &lastVisitedAt, &created, &updated,
		&b.Meta.Title, &b.Meta.Description, &b.Meta.SiteName, &b.Meta.Type, &b.Meta.Author, &b.Meta.Keywords,
		&b.Meta.Locale, &b.Meta.TwitterCard, &b.Meta.TwitterSite, &b.Meta.Image, &b.Meta.Favicon,
		&httpStatus, &b.Meta.ContentType, &b.Meta.FetchError, &b.Meta.FetchCount, &fetchedAt)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if categoryId.Valid {
		b.CategoryId = &categoryId.Int64
	}
	if lastVisitedAt.Valid {
		t := time.Unix(lastVisitedAt.Int64, 0)
		b.LastVisitedAt = &t
	}
	if httpStatus.Valid {
		status := int(httpStatus.Int64)
		b.Meta.HttpStatus = &status
	}
	if fetchedAt.Valid {
		t := time.Unix(fetchedAt.Int64, 0)
		b.Meta.FetchedAt = &t
	}
	b.Favorite = favorite == 1
	b.Archived = archived == 1
	b.Created = time.Unix(created, 0)
	b.Updated = time.Unix(updated, 0)
	return b, nil
}

func (store *Store) queryBookmarks(query string, args ...any) ([]domain.Bookmark, error) {
	rows, err := store.conn().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bookmarks {
		tags, err := store.TagsForBookmark(bookmarks[i].Id)
		if err != nil {
			return nil, err
		}
		bookmarks[i].Tags = tags
	}
	return bookmarks, nil
}

func (store *Store) FindBookmarkById(id int64) (*domain.Bookmark, error) {
	b, err := scanBookmark(store.conn().QueryRow(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tags, err := store.TagsForBookmark(b.Id)
	if err != nil {
		return nil, err
	}
	b.Tags = tags
	return &b, nil
}

func (store *Store) FindBookmarkByURLHash(hash string) (*domain.Bookmark, error) {
	b, err := scanBookmark(store.conn().QueryRow(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE url_hash = ? ORDER BY id LIMIT 1", hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BookmarkExists checks for a duplicate using the exact url string scoped to
// a category. The same URL under a different category is not a duplicate.
func (store *Store) BookmarkExists(url string, categoryId *int64) (bool, error) {
	var query string
	var args []any
	if categoryId == nil {
		query = "SELECT 1 FROM bookmarks WHERE url = ? AND category_id IS NULL LIMIT 1"
		args = []any{url}
	} else {
		query = "SELECT 1 FROM bookmarks WHERE url = ? AND category_id = ? LIMIT 1"
		args = []any{url, *categoryId}
	}
	rows, err := store.conn().Query(query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), nil
}

func (store *Store) CreateBookmark(b *domain.Bookmark) (int64, error) {
	if b.URLHash == "" {
		b.URLHash = domain.HashURL(b.URL)
	}
	if b.Created.IsZero() {
		b.Created = time.Now()
	}
	if b.Updated.IsZero() {
		b.Updated = b.Created
	}
	result, err := store.conn().Exec(`
		INSERT INTO bookmarks (url, url_hash, title, description, category_id, favorite, archived,
			visit_count, created, updated, favicon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.URL, b.URLHash, b.Title, b.Description, nullableInt64(b.CategoryId),
		boolToInt(b.Favorite), boolToInt(b.Archived), b.VisitCount,
		b.Created.Unix(), b.Updated.Unix(), b.Meta.Favicon)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	b.Id = id
	return id, nil
}

// UpdateBookmarkURL changes a bookmark URL and recomputes its url_hash, the
// hash must always stay a pure function of the stored url.
func (store *Store) UpdateBookmarkURL(id int64, url string) error {
	_, err := store.conn().Exec(
		"UPDATE bookmarks SET url = ?, url_hash = ?, updated = ? WHERE id = ?",
		url, domain.HashURL(url), nowUnix(), id)
	return err
}

func (store *Store) DeleteBookmark(id int64) error {
	_, err := store.conn().Exec("DELETE FROM bookmarks WHERE id = ?", id)
	return err
}

func (store *Store) RecordVisit(id int64) error {
	_, err := store.conn().Exec(
		"UPDATE bookmarks SET visit_count = visit_count + 1, last_visited_at = ? WHERE id = ?",
		nowUnix(), id)
	return err
}

// SaveFetchedMetadata copies a successful fetch result onto the bookmark and
// clears any previous fetch error.
func (store *Store) SaveFetchedMetadata(id int64, result domain.MetadataFetchResult) error {
	var httpStatus any
	if result.Meta.HttpStatus != nil {
		httpStatus = *result.Meta.HttpStatus
	}
	_, err := store.conn().Exec(`
		UPDATE bookmarks SET
			meta_title = ?, meta_description = ?, meta_site_name = ?, meta_type = ?,
			meta_author = ?, meta_keywords = ?, meta_locale = ?, meta_twitter_card = ?,
			meta_twitter_site = ?, meta_image = ?, favicon = ?, http_status = ?,
			content_type = ?, meta_fetch_error = '', meta_fetch_count = meta_fetch_count + 1,
			meta_fetched_at = ?, updated = ?
		WHERE id = ?`,
		result.Meta.Title, result.Meta.Description, result.Meta.SiteName, result.Meta.Type,
		result.Meta.Author, result.Meta.Keywords, result.Meta.Locale, result.Meta.TwitterCard,
		result.Meta.TwitterSite, result.Meta.Image, result.Meta.Favicon, httpStatus,
		result.Meta.ContentType, nowUnix(), nowUnix(), id)
	if err != nil {
		return err
	}
	if result.ReadableContent != "" {
		_, err = store.conn().Exec(
			"UPDATE bookmarks SET content = ?, archived = 1 WHERE id = ?",
			result.ReadableContent, id)
	}
	return err
}

// RecordFetchFailure bumps the attempt counter and stores the error without
// touching metadata from earlier successful fetches.
func (store *Store) RecordFetchFailure(id int64, message string) error {
	_, err := store.conn().Exec(`
		UPDATE bookmarks SET meta_fetch_error = ?, meta_fetch_count = meta_fetch_count + 1,
			meta_fetched_at = ? WHERE id = ?`,
		message, nowUnix(), id)
	return err
}

func (store *Store) ListBookmarksByCategory(categoryId *int64) ([]domain.Bookmark, error) {
	if categoryId == nil {
		return store.queryBookmarks(
			"SELECT " + bookmarkColumns + " FROM bookmarks WHERE category_id IS NULL ORDER BY id")
	}
	return store.queryBookmarks(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE category_id = ? ORDER BY id", *categoryId)
}

// ListBookmarksChunk pages through all bookmarks in insertion id order, used
// by the streaming CSV export.
func (store *Store) ListBookmarksChunk(afterId int64, limit int) ([]domain.Bookmark, error) {
	return store.queryBookmarks(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id > ? ORDER BY id LIMIT ?", afterId, limit)
}

func (store *Store) ListFavoriteBookmarks() ([]domain.Bookmark, error) {
	return store.queryBookmarks(
		"SELECT " + bookmarkColumns + " FROM bookmarks WHERE favorite = 1 ORDER BY id")
}

func (store *Store) ListRecentBookmarks(limit int) ([]domain.Bookmark, error) {
	return store.queryBookmarks(
		"SELECT "+bookmarkColumns+" FROM bookmarks ORDER BY created DESC LIMIT ?", limit)
}

// ListBookmarksMissingMetadata returns bookmarks that have never had a
// successful metadata fetch, as (id, url) pairs for the batch fetcher.
func (store *Store) ListBookmarksMissingMetadata(limit int) ([]domain.BatchItem, error) {
	rows, err := store.conn().Query(`
		SELECT id, url FROM bookmarks
		WHERE meta_fetched_at IS NULL OR meta_fetch_error != ''
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]domain.BatchItem, 0)
	for rows.Next() {
		var item domain.BatchItem
		if err := rows.Scan(&item.BookmarkId, &item.URL); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SearchBookmarks matches through the fts5 index when the driver was built
// with one, and falls back to LIKE matching over url, title and description
// otherwise.
func (store *Store) SearchBookmarks(query string, limit int) ([]domain.Bookmark, error) {
	if !store.ftsEnabled {
		pattern := "%" + query + "%"
		return store.queryBookmarks(`
			SELECT `+bookmarkColumns+` FROM bookmarks
			WHERE url LIKE ? OR title LIKE ? OR description LIKE ?
			ORDER BY created DESC LIMIT ?`, pattern, pattern, pattern, limit)
	}
	return store.queryBookmarks(`
		SELECT `+bookmarkColumns+` FROM bookmarks
		WHERE id IN (SELECT rowid FROM bookmarks_fts WHERE bookmarks_fts MATCH ?)
		ORDER BY created DESC LIMIT ?`, query, limit)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
