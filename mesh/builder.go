package mesh

import (
	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/types"
)

// BlockField is a variable read in block-preserving mode.
type BlockField struct {
	Name   string
	Blocks []types.Block
}

// SlabField is a variable read in repartition mode.
type SlabField struct {
	Name string
	Desc types.SlabDescriptor
	Data []float64
}

// Builder assembles mesh payloads for one rank.
type Builder struct {
	geom   Geometry
	rank   int
	logger types.Logger
}

// NewBuilder creates a payload builder.
//
// Parameters:
//   - geom: Resolved global geometry
//   - rank: Rank stamped on payloads and used as slab domain id
//   - logger: Logger for geometry mismatch warnings (nil for none)
func NewBuilder(geom Geometry, rank int, logger types.Logger) *Builder {
	return &Builder{geom: geom, rank: rank, logger: logging.OrNop(logger)}
}

// Geometry returns the builder's geometry.
func (b *Builder) Geometry() Geometry {
	return b.geom
}

// FromBlocks builds one domain per primary block.
//
// The secondary field, when given, is attached to a domain only if a
// secondary block with the same index and geometry exists; otherwise it is
// omitted for that domain with a warning.
//
// Field values reference the block buffers without copying.
func (b *Builder) FromBlocks(step uint64, primary BlockField, secondary *BlockField) (*types.MeshPayload, error) {
	payload := &types.MeshPayload{Step: step, Rank: b.rank, Domains: make([]types.Domain, 0, len(primary.Blocks))}

	var byIndex map[int]types.Block
	if secondary != nil {
		byIndex = make(map[int]types.Block, len(secondary.Blocks))
		for _, blk := range secondary.Blocks {
			byIndex[blk.Index] = blk
		}
	}

	for _, blk := range primary.Blocks {
		coords, err := b.geom.coords(blk.Start, blk.Count, true)
		if err != nil {
			return nil, err
		}

		domain := types.Domain{
			ID:     blk.Index,
			Coords: coords,
			Fields: []types.Field{{Name: primary.Name, Association: types.AssociationVertex, Values: blk.Data}},
		}

		if secondary != nil {
			sec, ok := byIndex[blk.Index]
			if ok && sec.SameGeometry(blk) {
				domain.Fields = append(domain.Fields,
					types.Field{Name: secondary.Name, Association: types.AssociationVertex, Values: sec.Data})
			} else {
				b.logger.Warn("secondary field geometry does not match primary, omitting",
					"step", step, "block", blk.Index, "primary", primary.Name, "secondary", secondary.Name)
			}
		}

		payload.Domains = append(payload.Domains, domain)
	}

	return payload, nil
}

// FromSlab builds the rank's single slab domain, or none for an empty slab.
//
// The secondary field is attached only if its descriptor equals the primary's.
func (b *Builder) FromSlab(step uint64, primary SlabField, secondary *SlabField) (*types.MeshPayload, error) {
	payload := &types.MeshPayload{Step: step, Rank: b.rank, Domains: []types.Domain{}}
	if primary.Desc.Empty() {
		return payload, nil
	}

	coords, err := b.geom.coords(primary.Desc.LocalStart, primary.Desc.LocalDims, false)
	if err != nil {
		return nil, err
	}

	domain := types.Domain{
		ID:     b.rank,
		Coords: coords,
		Fields: []types.Field{{Name: primary.Name, Association: types.AssociationVertex, Values: primary.Data}},
	}

	if secondary != nil {
		if secondary.Desc.Equal(primary.Desc) && !secondary.Desc.Empty() {
			domain.Fields = append(domain.Fields,
				types.Field{Name: secondary.Name, Association: types.AssociationVertex, Values: secondary.Data})
		} else {
			b.logger.Warn("secondary field slab does not match primary, omitting",
				"step", step, "primary", primary.Name, "secondary", secondary.Name,
				"primaryDims", primary.Desc.GlobalDims, "secondaryDims", secondary.Desc.GlobalDims)
		}
	}
	payload.Domains = append(payload.Domains, domain)

	return payload, nil
}
