package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"aggregat4/linkmarks/internal/domain"

	"github.com/gosimple/slug"
)

// FindOrCreateTag returns the tag with the given name, creating it when it
// does not exist yet. Matching is case-insensitive on the name.
func (store *Store) FindOrCreateTag(name string) (domain.Tag, error) {
	name = strings.TrimSpace(name)
	var tag domain.Tag
	err := store.conn().QueryRow(
		"SELECT id, name, slug, usage_count FROM tags WHERE name = ? COLLATE NOCASE",
		name).Scan(&tag.Id, &tag.Name, &tag.Slug, &tag.UsageCount)
	if err == nil {
		return tag, nil
	}
	if err != sql.ErrNoRows {
		return domain.Tag{}, err
	}
	tagSlug, err := store.uniqueTagSlug(name)
	if err != nil {
		return domain.Tag{}, err
	}
	result, err := store.conn().Exec(
		"INSERT INTO tags (name, slug, usage_count) VALUES (?, ?, 0)", name, tagSlug)
	if err != nil {
		return domain.Tag{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return domain.Tag{}, err
	}
	return domain.Tag{Id: id, Name: name, Slug: tagSlug}, nil
}

func (store *Store) uniqueTagSlug(name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "tag"
	}
	candidate := base
	for suffix := 2; ; suffix++ {
		var exists int
		err := store.conn().QueryRow("SELECT COUNT(*) FROM tags WHERE slug = ?", candidate).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

func (store *Store) AssociateTag(bookmarkId, tagId int64) error {
	_, err := store.conn().Exec(
		"INSERT OR IGNORE INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)",
		bookmarkId, tagId)
	return err
}

// TagsForBookmark returns a bookmark's tags in association order.
func (store *Store) TagsForBookmark(bookmarkId int64) ([]domain.Tag, error) {
	rows, err := store.conn().Query(`
		SELECT t.id, t.name, t.slug, t.usage_count
		FROM tags t, bookmark_tags bt
		WHERE bt.tag_id = t.id AND bt.bookmark_id = ?
		ORDER BY bt.id`, bookmarkId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tags := make([]domain.Tag, 0)
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.Id, &tag.Name, &tag.Slug, &tag.UsageCount); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// RecomputeTagUsage recalculates every usage_count from the association
// table. Counts are derived data and are never trusted incrementally after
// bulk operations.
func (store *Store) RecomputeTagUsage() error {
	_, err := store.conn().Exec(
		"UPDATE tags SET usage_count = (SELECT COUNT(*) FROM bookmark_tags WHERE tag_id = tags.id)")
	return err
}
