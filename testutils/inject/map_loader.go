package inject

import (
	"go.viam.com/planner2d/occupancy"
)

// MapLoader is an injected map loader.
type MapLoader struct {
	occupancy.ImageLoader
	LoadFunc func(path string) (occupancy.MapSpec, error)
}

// Load calls the injected Load or the real version.
func (l *MapLoader) Load(path string) (occupancy.MapSpec, error) {
	if l.LoadFunc == nil {
		return l.ImageLoader.Load(path)
	}
	return l.LoadFunc(path)
}
