package backend

import (
	"github.com/arloliu/insitu/types"
)

func testPayload(step uint64) *types.MeshPayload {
	return &types.MeshPayload{
		Step: step,
		Rank: 0,
		Domains: []types.Domain{
			{
				ID: 0,
				Coords: types.UniformCoords{
					Origin:  [3]float64{0, 0, 0},
					Spacing: [3]float64{0.1, 0.1, 0.1},
					Dims:    [3]uint64{2, 2, 1},
				},
				Fields: []types.Field{
					{Name: "T", Association: types.AssociationVertex, Values: []float64{1, 2, 3, 4}},
					{Name: "P", Association: types.AssociationVertex, Values: []float64{-1, 0, 1, 2}},
				},
			},
			{
				ID: 2,
				Coords: types.UniformCoords{
					Origin:  [3]float64{0.2, 0, 0},
					Spacing: [3]float64{0.1, 0.1, 0.1},
					Dims:    [3]uint64{2, 1, 1},
				},
				Fields: []types.Field{
					{Name: "T", Association: types.AssociationVertex, Values: []float64{10, 20}},
				},
			},
		},
	}
}
