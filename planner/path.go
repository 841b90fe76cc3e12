package planner

import (
	"go.viam.com/planner2d/grid"
	"go.viam.com/planner2d/pathsearch"
)

// extractPath walks parent references from start toward the root. The walk stops
// at a cell that is its own parent, at a cell without a parent and after
// visiting every cell of the map once, so a malformed path map can neither loop
// forever nor index outside it. The returned path is empty when start was not
// reached; truncated reports that the walk ended somewhere other than a root.
func extractPath(pm *pathsearch.PathMap, start grid.Cell) (path []grid.Cell, truncated bool) {
	if pm == nil || !pm.Dims.Inside(start) || len(pm.Parent) != pm.Dims.Size() {
		return nil, false
	}
	idx := pm.Dims.Index(start)
	if !validParent(pm, idx) {
		return nil, false
	}
	bound := pm.Dims.Size()
	for visited := 0; visited < bound; visited++ {
		path = append(path, pm.Dims.CellAt(idx))
		parent := pm.Parent[idx]
		if parent == idx {
			return path, false
		}
		if !validParent(pm, parent) {
			return path, true
		}
		idx = parent
	}
	return path, true
}

func validParent(pm *pathsearch.PathMap, idx int) bool {
	return idx >= 0 && idx < len(pm.Parent) && pm.Parent[idx] >= 0 && pm.Parent[idx] < len(pm.Parent)
}
