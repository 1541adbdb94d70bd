// Package categorytree converts between the persisted adjacency-list
// category table and the nested or path-string representations used by the
// import and export pipelines, and owns the structural invariants of the
// tree (level consistency, acyclicity).
package categorytree

import (
	"errors"
	"fmt"
	"strings"

	"aggregat4/linkmarks/internal/domain"

	"go.uber.org/zap"
)

// ErrInvalidMove is returned when a move would make a category a descendant
// of itself.
var ErrInvalidMove = errors.New("category cannot be moved under itself or one of its descendants")

// ErrTreeCorrupt is returned when an ancestor walk does not terminate within
// the configured depth limit, which can only happen on corrupt data.
var ErrTreeCorrupt = errors.New("category tree exceeds maximum depth, parent chain may be cyclic")

type Codec struct {
	store    domain.Store
	maxDepth int
	logger   *zap.Logger
}

func New(store domain.Store, maxDepth int, logger *zap.Logger) *Codec {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{store: store, maxDepth: maxDepth, logger: logger}
}

// BuildTree loads all categories and returns them as a nested tree rooted at
// the top level, each node annotated with a freshly computed bookmark count.
func (codec *Codec) BuildTree() ([]*domain.CategoryNode, error) {
	flat, err := codec.store.ListCategories()
	if err != nil {
		return nil, err
	}
	counts, err := codec.store.BookmarkCountsByCategory()
	if err != nil {
		return nil, err
	}
	return codec.BuildNestedTree(flat, counts, nil), nil
}

// BuildNestedTree groups a flat category list by parent reference into a
// nested structure. The input list is expected in (sort_order, name) order,
// which is preserved at every level. Recursion is bounded by the configured
// maximum depth so corrupt parent chains cannot exhaust the stack.
func (codec *Codec) BuildNestedTree(flat []domain.Category, counts map[int64]int, parentId *int64) []*domain.CategoryNode {
	return codec.buildNested(flat, counts, parentId, 0)
}

func (codec *Codec) buildNested(flat []domain.Category, counts map[int64]int, parentId *int64, depth int) []*domain.CategoryNode {
	if depth >= codec.maxDepth {
		codec.logger.Warn("category tree depth limit reached while nesting", zap.Int("maxDepth", codec.maxDepth))
		return nil
	}
	nodes := make([]*domain.CategoryNode, 0)
	for _, category := range flat {
		if !sameParent(category.ParentId, parentId) {
			continue
		}
		id := category.Id
		node := &domain.CategoryNode{Category: category, BookmarkCount: counts[id]}
		node.Children = codec.buildNested(flat, counts, &id, depth+1)
		nodes = append(nodes, node)
	}
	return nodes
}

// PathString walks the ancestor chain of a category and renders it root to
// leaf, e.g. "Root / Child / Grandchild". The walk is capped at the maximum
// depth so it terminates even when the parent chain is corrupt.
func (codec *Codec) PathString(categoryId int64, separator string) (string, error) {
	segments := make([]string, 0)
	current := &categoryId
	for iteration := 0; current != nil; iteration++ {
		if iteration >= codec.maxDepth {
			return "", ErrTreeCorrupt
		}
		category, err := codec.store.FindCategoryById(*current)
		if err != nil {
			return "", err
		}
		if category == nil {
			return "", fmt.Errorf("category %d not found", *current)
		}
		segments = append(segments, category.Name)
		current = category.ParentId
	}
	// collected leaf to root, reverse in place
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, separator), nil
}

// ResolveOrCreatePath walks a path like "Root/Child/Grandchild" and returns
// the id of the leaf category, creating missing levels as it goes. Segment
// lookup is scoped to the parent, so equally named categories under
// different parents stay distinct.
func (codec *Codec) ResolveOrCreatePath(path string, separator string) (int64, error) {
	if separator == "" {
		separator = "/"
	}
	var parentId *int64
	level := 0
	var leafId int64 = -1
	for _, rawSegment := range strings.Split(path, separator) {
		segment := strings.TrimSpace(rawSegment)
		if segment == "" {
			continue
		}
		if level >= codec.maxDepth {
			return 0, fmt.Errorf("category path %q deeper than the maximum of %d levels", path, codec.maxDepth)
		}
		existing, err := codec.store.FindCategoryBySlugAndParent(segment, parentId)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			leafId = existing.Id
			level = existing.Level + 1
		} else {
			category := domain.Category{Name: segment, ParentId: parentId, Level: level}
			id, err := codec.store.CreateCategory(&category)
			if err != nil {
				return 0, err
			}
			leafId = id
			level++
		}
		id := leafId
		parentId = &id
	}
	if leafId < 0 {
		return 0, fmt.Errorf("category path %q contains no segments", path)
	}
	return leafId, nil
}

// ResolveOrCreate finds a single category by name, creating a root level
// category when none exists.
func (codec *Codec) ResolveOrCreate(name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("category name is empty")
	}
	existing, err := codec.store.FindCategoryByName(name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.Id, nil
	}
	category := domain.Category{Name: name}
	return codec.store.CreateCategory(&category)
}

// Move reparents a category. Moving a category under itself or under one of
// its own descendants is rejected with ErrInvalidMove and leaves the tree
// untouched. The level invariant (level = parent.level + 1) is restored for
// the whole moved subtree inside one transaction.
func (codec *Codec) Move(categoryId int64, newParentId *int64) error {
	return codec.store.WithTx(func(tx domain.Store) error {
		category, err := tx.FindCategoryById(categoryId)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("category %d not found", categoryId)
		}
		newLevel := 0
		if newParentId != nil {
			if *newParentId == categoryId {
				return ErrInvalidMove
			}
			descendants, err := codec.descendantIds(tx, categoryId)
			if err != nil {
				return err
			}
			for _, descendantId := range descendants {
				if descendantId == *newParentId {
					return ErrInvalidMove
				}
			}
			parent, err := tx.FindCategoryById(*newParentId)
			if err != nil {
				return err
			}
			if parent == nil {
				return fmt.Errorf("target category %d not found", *newParentId)
			}
			newLevel = parent.Level + 1
		}
		if err := tx.UpdateCategoryParent(categoryId, newParentId, newLevel); err != nil {
			return err
		}
		return codec.recomputeSubtreeLevels(tx, categoryId, newLevel, 0)
	})
}

// SafeDelete removes a category without cascading: children are reparented
// one level up and the category's bookmarks become uncategorized.
func (codec *Codec) SafeDelete(categoryId int64) error {
	return codec.store.WithTx(func(tx domain.Store) error {
		category, err := tx.FindCategoryById(categoryId)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("category %d not found", categoryId)
		}
		children, err := tx.ListChildCategories(&categoryId)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := tx.UpdateCategoryParent(child.Id, category.ParentId, category.Level); err != nil {
				return err
			}
			if err := codec.recomputeSubtreeLevels(tx, child.Id, category.Level, 0); err != nil {
				return err
			}
		}
		if err := tx.ReassignBookmarkCategory(categoryId, nil); err != nil {
			return err
		}
		return tx.DeleteCategoryRow(categoryId)
	})
}

func (codec *Codec) recomputeSubtreeLevels(store domain.Store, categoryId int64, level int, depth int) error {
	if depth >= codec.maxDepth {
		return ErrTreeCorrupt
	}
	children, err := store.ListChildCategories(&categoryId)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := store.UpdateCategoryParent(child.Id, child.ParentId, level+1); err != nil {
			return err
		}
		if err := codec.recomputeSubtreeLevels(store, child.Id, level+1, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// descendantIds collects every id below categoryId with a breadth first walk
// bounded by the depth limit.
func (codec *Codec) descendantIds(store domain.Store, categoryId int64) ([]int64, error) {
	var result []int64
	frontier := []int64{categoryId}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= codec.maxDepth {
			return nil, ErrTreeCorrupt
		}
		var next []int64
		for _, id := range frontier {
			parentId := id
			children, err := store.ListChildCategories(&parentId)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				result = append(result, child.Id)
				next = append(next, child.Id)
			}
		}
		frontier = next
	}
	return result, nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
