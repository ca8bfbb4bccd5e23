package mesh

import (
	"fmt"

	"github.com/arloliu/insitu/types"
)

// DefaultSpacing is the spacing used when neither settings nor the source declare one.
const DefaultSpacing = 0.1

// Geometry is the global uniform grid geometry, in spatial (x, y, z) order.
type Geometry struct {
	Origin  [3]float64 `yaml:"origin"`
	Spacing [3]float64 `yaml:"spacing"`
}

// DefaultGeometry returns origin (0,0,0) and spacing (0.1,0.1,0.1).
func DefaultGeometry() Geometry {
	return Geometry{Spacing: [3]float64{DefaultSpacing, DefaultSpacing, DefaultSpacing}}
}

// WithAttributes returns g overridden by source-declared attributes.
//
// types.AttrOrigin and types.AttrSpacing are honoured when they carry three
// values, or one value applied to every axis. Other lengths are ignored.
//
// Returns:
//   - Geometry: Resolved geometry
//   - []string: Names of the attributes that were applied
func (g Geometry) WithAttributes(attrs map[string][]float64) (Geometry, []string) {
	applied := []string{}
	if v, ok := expand(attrs[types.AttrOrigin]); ok {
		g.Origin = v
		applied = append(applied, types.AttrOrigin)
	}
	if v, ok := expand(attrs[types.AttrSpacing]); ok {
		g.Spacing = v
		applied = append(applied, types.AttrSpacing)
	}

	return g, applied
}

// Validate checks that every spacing is positive.
func (g Geometry) Validate() error {
	for axis, s := range g.Spacing {
		if s <= 0 {
			return fmt.Errorf("%w: spacing on axis %d must be positive, got %g", types.ErrInvalidConfig, axis, s)
		}
	}

	return nil
}

func expand(values []float64) ([3]float64, bool) {
	switch len(values) {
	case 1:
		return [3]float64{values[0], values[0], values[0]}, true
	case 3:
		return [3]float64{values[0], values[1], values[2]}, true
	default:
		return [3]float64{}, false
	}
}

// coords maps an array-space box onto a uniform coordinate set.
func (g Geometry) coords(start, count []uint64, blockAligned bool) (types.UniformCoords, error) {
	n := len(count)
	if n == 0 || n > 3 || len(start) != n {
		return types.UniformCoords{}, fmt.Errorf("%w: unsupported dimensionality %d", types.ErrInvalidMesh, n)
	}

	c := types.UniformCoords{Origin: g.Origin, Spacing: g.Spacing, Dims: [3]uint64{1, 1, 1}}
	for d := range n {
		axis := n - 1 - d
		sp := g.Spacing[axis]
		c.Dims[axis] = count[d]
		c.Origin[axis] += float64(start[d]) * sp
		if blockAligned && count[d] > 0 {
			c.Origin[axis] -= float64(start[d]/count[d]) * sp
		}
	}

	return c, nil
}
