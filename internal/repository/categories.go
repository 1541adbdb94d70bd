package repository

import (
	"database/sql"
	"fmt"

	"aggregat4/linkmarks/internal/domain"

	"github.com/gosimple/slug"
)

const categoryColumns = "id, name, slug, parent_id, level, sort_order, description, color"

func scanCategory(row rowScanner) (domain.Category, error) {
	var c domain.Category
	var parentId sql.NullInt64
	err := row.Scan(&c.Id, &c.Name, &c.Slug, &parentId, &c.Level, &c.SortOrder, &c.Description, &c.Color)
	if err != nil {
		return domain.Category{}, err
	}
	if parentId.Valid {
		c.ParentId = &parentId.Int64
	}
	return c, nil
}

func (store *Store) queryCategories(query string, args ...any) ([]domain.Category, error) {
	rows, err := store.conn().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	categories := make([]domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (store *Store) ListCategories() ([]domain.Category, error) {
	return store.queryCategories(
		"SELECT " + categoryColumns + " FROM categories ORDER BY sort_order, name")
}

func (store *Store) FindCategoryById(id int64) (*domain.Category, error) {
	c, err := scanCategory(store.conn().QueryRow(
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (store *Store) FindCategoryByName(name string) (*domain.Category, error) {
	c, err := scanCategory(store.conn().QueryRow(
		"SELECT "+categoryColumns+" FROM categories WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1", name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCategoryBySlugAndParent looks a category up within one parent scope.
// The match is on the slugified segment or the raw name, so two categories
// with the same name under different parents stay distinct even though their
// stored slugs carry a uniqueness suffix.
func (store *Store) FindCategoryBySlugAndParent(slugValue string, parentId *int64) (*domain.Category, error) {
	var row *sql.Row
	if parentId == nil {
		row = store.conn().QueryRow(
			"SELECT "+categoryColumns+" FROM categories WHERE parent_id IS NULL AND (slug = ? OR name = ? COLLATE NOCASE) ORDER BY id LIMIT 1",
			slugValue, slugValue)
	} else {
		row = store.conn().QueryRow(
			"SELECT "+categoryColumns+" FROM categories WHERE parent_id = ? AND (slug = ? OR name = ? COLLATE NOCASE) ORDER BY id LIMIT 1",
			*parentId, slugValue, slugValue)
	}
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a category, deriving a unique slug from the name
// with a numeric suffix on collision.
func (store *Store) CreateCategory(c *domain.Category) (int64, error) {
	if c.Slug == "" {
		uniqueSlug, err := store.uniqueCategorySlug(c.Name)
		if err != nil {
			return 0, err
		}
		c.Slug = uniqueSlug
	}
	result, err := store.conn().Exec(`
		INSERT INTO categories (name, slug, parent_id, level, sort_order, description, color)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Slug, nullableInt64(c.ParentId), c.Level, c.SortOrder, c.Description, c.Color)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.Id = id
	return id, nil
}

func (store *Store) uniqueCategorySlug(name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "category"
	}
	candidate := base
	for suffix := 2; ; suffix++ {
		var exists int
		err := store.conn().QueryRow("SELECT COUNT(*) FROM categories WHERE slug = ?", candidate).Scan(&exists)
		if err != nil {
			return "", err
		}
		if exists == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

func (store *Store) UpdateCategoryColor(id int64, color string) error {
	_, err := store.conn().Exec("UPDATE categories SET color = ? WHERE id = ?", color, id)
	return err
}

func (store *Store) UpdateCategoryParent(id int64, parentId *int64, level int) error {
	_, err := store.conn().Exec(
		"UPDATE categories SET parent_id = ?, level = ? WHERE id = ?",
		nullableInt64(parentId), level, id)
	return err
}

func (store *Store) ListChildCategories(parentId *int64) ([]domain.Category, error) {
	if parentId == nil {
		return store.queryCategories(
			"SELECT " + categoryColumns + " FROM categories WHERE parent_id IS NULL ORDER BY sort_order, name")
	}
	return store.queryCategories(
		"SELECT "+categoryColumns+" FROM categories WHERE parent_id = ? ORDER BY sort_order, name", *parentId)
}

// ReassignBookmarkCategory moves every bookmark of one category somewhere
// else (or to uncategorized), used by safe category deletion.
func (store *Store) ReassignBookmarkCategory(fromCategoryId int64, toCategoryId *int64) error {
	_, err := store.conn().Exec(
		"UPDATE bookmarks SET category_id = ? WHERE category_id = ?",
		nullableInt64(toCategoryId), fromCategoryId)
	return err
}

func (store *Store) DeleteCategoryRow(id int64) error {
	_, err := store.conn().Exec("DELETE FROM categories WHERE id = ?", id)
	return err
}

func (store *Store) BookmarkCountsByCategory() (map[int64]int, error) {
	rows, err := store.conn().Query(
		"SELECT category_id, COUNT(*) FROM bookmarks WHERE category_id IS NOT NULL GROUP BY category_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var categoryId int64
		var count int
		if err := rows.Scan(&categoryId, &count); err != nil {
			return nil, err
		}
		counts[categoryId] = count
	}
	return counts, rows.Err()
}
