package planner

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/planner2d/dmap"
	"go.viam.com/planner2d/occupancy"
)

// fieldCache owns the baseline distance field of the static map and the
// working copy each cycle overlays dynamic obstacles on. It is touched only by
// the planning cycle.
type fieldCache struct {
	engine DistanceTransformer

	working  *dmap.Field
	baseline *dmap.Field
	// baselineCost is the cost field of the baseline, reused on cycles without
	// dynamic obstacles.
	baselineCost *mat.Dense
	maxIndex     int
}

func newFieldCache(engine DistanceTransformer) *fieldCache {
	return &fieldCache{engine: engine}
}

// initializeBaseline runs the distance transform once over the static map with
// no dynamic obstacles and snapshots the result.
func (fc *fieldCache) initializeBaseline(g *occupancy.Grid, maxDistance, resolution float64, costs costMapping) error {
	fc.working = dmap.NewField(g.Dims())
	fc.engine.SetMaxDistance(maxDistance)
	fc.engine.SetClassification(g)
	fc.engine.SetOutput(fc.working)
	if err := fc.engine.Init(); err != nil {
		fc.reset()
		return errors.Wrap(err, "cannot initialize distance transform")
	}
	fc.maxIndex = fc.engine.MaxIndex()
	dist := fc.engine.Compute()
	if dist == nil {
		fc.reset()
		return errors.New("distance transform produced no field")
	}
	fc.baseline = fc.working.Clone()
	fc.baselineCost = costs.apply(dist, resolution)
	return nil
}

// restore copies the baseline into the working field.
func (fc *fieldCache) restore() error {
	if !fc.ready() {
		return errors.New("distance field baseline not initialized")
	}
	return fc.working.CopyFrom(fc.baseline)
}

func (fc *fieldCache) ready() bool {
	return fc.baseline != nil
}

func (fc *fieldCache) reset() {
	fc.working = nil
	fc.baseline = nil
	fc.baselineCost = nil
	fc.maxIndex = 0
}
