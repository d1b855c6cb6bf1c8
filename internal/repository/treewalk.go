package repository

import (
	"context"
	"fmt"

	models "dataroom/internal/domain/models/dataroom"
)

// FolderLookup loads a single folder by ID
type FolderLookup func(ctx context.Context, id int64) (*models.Folder, error)

// ChildLookup returns the IDs of all folders whose parent is in parentIDs
type ChildLookup func(ctx context.Context, parentIDs []int64) ([]int64, error)

// WalkAncestors follows parent references upward from folderID and returns
// the chain ordered root first, folderID last.
// A repeated ID means the stored parent links are corrupt.
func WalkAncestors(ctx context.Context, folderID int64, get FolderLookup) ([]models.Folder, error) {
	var chain []models.Folder
	seen := make(map[int64]struct{})

	current := &folderID
	for current != nil {
		if _, ok := seen[*current]; ok {
			return nil, fmt.Errorf("folder %d: cycle in parent chain", *current)
		}
		seen[*current] = struct{}{}

		folder, err := get(ctx, *current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *folder)
		current = folder.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// CollectSubtree walks the tree breadth-first starting at rootID.
// Levels are returned shallowest first; levels[0] is always {rootID}.
func CollectSubtree(ctx context.Context, rootID int64, children ChildLookup) ([][]int64, error) {
	levels := [][]int64{{rootID}}
	seen := map[int64]struct{}{rootID: {}}

	frontier := levels[0]
	for len(frontier) > 0 {
		childIDs, err := children(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("collect subtree of folder %d: %w", rootID, err)
		}

		next := make([]int64, 0, len(childIDs))
		for _, id := range childIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		if len(next) == 0 {
			break
		}

		levels = append(levels, next)
		frontier = next
	}

	return levels, nil
}

// Flatten concatenates subtree levels into one ID list, shallowest first
func Flatten(levels [][]int64) []int64 {
	var ids []int64
	for _, level := range levels {
		ids = append(ids, level...)
	}
	return ids
}

// WouldCreateCycle reports whether moving folderID under newParentID would make
// the folder its own ancestor
func WouldCreateCycle(ctx context.Context, folderID, newParentID int64, get FolderLookup) (bool, error) {
	if folderID == newParentID {
		return true, nil
	}

	chain, err := WalkAncestors(ctx, newParentID, get)
	if err != nil {
		return false, err
	}
	for _, ancestor := range chain {
		if ancestor.ID == folderID {
			return true, nil
		}
	}
	return false, nil
}

// SameParent reports whether two nullable parent references point at the same folder
func SameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
