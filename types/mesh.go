package types

import "fmt"

// Association describes where field values live on the mesh.
type Association string

// AssociationVertex places one value on each mesh vertex.
const AssociationVertex Association = "vertex"

// UniformCoords describes a uniform (image) coordinate set.
//
// Dims holds vertex counts along the i, j and k axes; unused axes are 1.
type UniformCoords struct {
	Origin  [3]float64
	Spacing [3]float64
	Dims    [3]uint64
}

// Vertices returns the number of vertices of the coordinate set.
func (c UniformCoords) Vertices() uint64 {
	return c.Dims[0] * c.Dims[1] * c.Dims[2]
}

// Field is a named set of values on a domain.
//
// Values references the reader's Block or slab buffer directly; it is not a
// copy and becomes invalid when the step ends.
type Field struct {
	Name        string
	Association Association
	Values      []float64
}

// Domain is one uniform mesh piece with its fields.
type Domain struct {
	// ID is the block index in preserve mode, or the rank in repartition mode.
	ID     int
	Coords UniformCoords
	Fields []Field
}

// Field returns the field with the given name.
func (d *Domain) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// MeshPayload is the backend-agnostic description of one step on one rank.
type MeshPayload struct {
	Step    uint64
	Rank    int
	Domains []Domain
}

// FieldNames returns the distinct field names in domain order.
func (p *MeshPayload) FieldNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0, 2)
	for _, d := range p.Domains {
		for _, f := range d.Fields {
			if _, ok := seen[f.Name]; ok {
				continue
			}
			seen[f.Name] = struct{}{}
			names = append(names, f.Name)
		}
	}

	return names
}

// Validate checks the structural consistency of the payload.
//
// Every domain must have positive vertex counts and spacing, at least one
// field, unique field names and values matching the vertex count.
//
// Returns:
//   - error: ErrInvalidMesh wrapped with the offending domain/field, nil if valid
func (p *MeshPayload) Validate() error {
	for i := range p.Domains {
		d := &p.Domains[i]
		if d.Coords.Vertices() == 0 {
			return fmt.Errorf("%w: domain %d has zero vertices", ErrInvalidMesh, d.ID)
		}
		for axis, s := range d.Coords.Spacing {
			if s <= 0 {
				return fmt.Errorf("%w: domain %d has non-positive spacing on axis %d", ErrInvalidMesh, d.ID, axis)
			}
		}
		if len(d.Fields) == 0 {
			return fmt.Errorf("%w: domain %d has no fields", ErrInvalidMesh, d.ID)
		}

		names := make(map[string]struct{}, len(d.Fields))
		for _, f := range d.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: domain %d has an unnamed field", ErrInvalidMesh, d.ID)
			}
			if _, dup := names[f.Name]; dup {
				return fmt.Errorf("%w: domain %d has duplicate field %q", ErrInvalidMesh, d.ID, f.Name)
			}
			names[f.Name] = struct{}{}
			if f.Association != AssociationVertex {
				return fmt.Errorf("%w: field %q has unsupported association %q", ErrInvalidMesh, f.Name, f.Association)
			}
			if uint64(len(f.Values)) != d.Coords.Vertices() {
				return fmt.Errorf("%w: field %q of domain %d has %d values, want %d",
					ErrInvalidMesh, f.Name, d.ID, len(f.Values), d.Coords.Vertices())
			}
		}
	}

	return nil
}
