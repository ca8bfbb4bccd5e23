package insitu

import (
	"context"

	"github.com/arloliu/insitu/mesh"
	"github.com/arloliu/insitu/types"
)

// processStep runs one step from StepReady to Draining.
func (r *Runner) processStep(ctx context.Context, step uint64) error {
	r.transition(ctx, LoopStepReady)
	if r.group.Rank() == 0 {
		r.logger.Info("processing step", "step", step)
	}
	if r.builder == nil {
		r.builder = mesh.NewBuilder(r.resolveGeometry(), r.group.Rank(), r.logger)
	}

	r.metrics.Start(types.TimerDataTransfer)
	payload, err := r.readStep(ctx, step)
	r.metrics.Stop(types.TimerDataTransfer)
	if err != nil {
		return err
	}

	r.transition(ctx, LoopPublishing)
	if r.cfg.Debug {
		if err := payload.Validate(); err != nil {
			return &types.OpError{Kind: ErrInvalidMesh, Op: "validate", Variable: r.cfg.Variables.Primary, Step: step, Err: err}
		}
	}

	r.metrics.Start(types.TimerBackendExecute)
	err = r.execute(ctx, payload)
	r.metrics.Stop(types.TimerBackendExecute)
	if err != nil {
		return err
	}

	if err := r.hooks.OnStep(ctx, payload, step); err != nil {
		r.logger.Warn("step hook error", "step", step, "error", err)
	}

	r.transition(ctx, LoopDraining)
	if err := r.client.EndStep(ctx); err != nil {
		return err
	}
	r.metrics.Stop(types.TimerTotalStep)
	r.metrics.Flush(step)

	return nil
}

// execute publishes the payload and runs the backend.
func (r *Runner) execute(ctx context.Context, payload *types.MeshPayload) error {
	if err := r.backend.Publish(ctx, payload); err != nil {
		return backendError("publish", payload.Step, err)
	}

	var action *types.Action
	if r.cfg.Backend.Action != "" {
		action = &types.Action{Name: r.cfg.Backend.Action, Params: r.cfg.Backend.Options}
	}
	if err := r.backend.Execute(ctx, action); err != nil {
		return backendError("execute", payload.Step, err)
	}

	return nil
}

// readStep reads the primary and optional secondary variable and assembles
// the payload. Primary failures are returned; secondary failures degrade.
func (r *Runner) readStep(ctx context.Context, step uint64) (*types.MeshPayload, error) {
	primary := r.cfg.Variables.Primary
	info, ok := r.client.Variable(primary)
	if !ok {
		return nil, &types.OpError{Kind: ErrVariableMissing, Op: "inquire", Variable: primary, Step: step}
	}
	r.checkUtilization(step, info)

	if r.cfg.PartitionMode == PartitionRepartition {
		return r.readSlab(ctx, step)
	}

	return r.readBlocks(ctx, step)
}

func (r *Runner) readBlocks(ctx context.Context, step uint64) (*types.MeshPayload, error) {
	blocks, total, err := r.reader.ReadPreserve(ctx, r.cfg.Variables.Primary)
	if err != nil {
		return nil, err
	}
	if r.cfg.Debug {
		r.logger.Info("local blocks", "step", step, "variable", r.cfg.Variables.Primary,
			"blocks", len(blocks), "total", total)
	}
	primary := mesh.BlockField{Name: r.cfg.Variables.Primary, Blocks: blocks}

	var secondary *mesh.BlockField
	if name := r.secondary(ctx, step); name != "" {
		blocks, _, err := r.reader.ReadPreserve(ctx, name)
		if err != nil {
			r.degrade(ctx, step, name, err)
		} else {
			secondary = &mesh.BlockField{Name: name, Blocks: blocks}
		}
	}

	r.metrics.Start(types.TimerMeshAssembly)
	payload, err := r.builder.FromBlocks(step, primary, secondary)
	r.metrics.Stop(types.TimerMeshAssembly)
	if err != nil {
		return nil, &types.OpError{Kind: ErrInvalidMesh, Op: "assemble", Variable: primary.Name, Step: step, Err: err}
	}

	return payload, nil
}

func (r *Runner) readSlab(ctx context.Context, step uint64) (*types.MeshPayload, error) {
	desc, err := r.reader.ReadRepartition(ctx, r.cfg.Variables.Primary, r.primaryBuf)
	if err != nil {
		return nil, err
	}
	if r.cfg.Debug {
		r.logger.Info("local slab", "step", step, "variable", r.cfg.Variables.Primary,
			"start", desc.LocalStart, "dims", desc.LocalDims, "resizes", r.primaryBuf.Resizes())
	}
	primary := mesh.SlabField{Name: r.cfg.Variables.Primary, Desc: desc, Data: r.primaryBuf.Data()}

	var secondary *mesh.SlabField
	if name := r.secondary(ctx, step); name != "" {
		desc, err := r.reader.ReadRepartition(ctx, name, r.secondBuf)
		if err != nil {
			r.degrade(ctx, step, name, err)
		} else {
			secondary = &mesh.SlabField{Name: name, Desc: desc, Data: r.secondBuf.Data()}
		}
	}

	r.metrics.Start(types.TimerMeshAssembly)
	payload, err := r.builder.FromSlab(step, primary, secondary)
	r.metrics.Stop(types.TimerMeshAssembly)
	if err != nil {
		return nil, &types.OpError{Kind: ErrInvalidMesh, Op: "assemble", Variable: primary.Name, Step: step, Err: err}
	}

	return payload, nil
}

// secondary returns the secondary variable name when it is configured and
// present in the current step. An absent secondary is reported through
// OnError and yields "".
func (r *Runner) secondary(ctx context.Context, step uint64) string {
	name := r.cfg.Variables.Secondary
	if name == "" {
		return ""
	}
	if _, ok := r.client.Variable(name); !ok {
		r.degrade(ctx, step, name, &types.OpError{Kind: ErrVariableMissing, Op: "inquire", Variable: name, Step: step})
		return ""
	}

	return name
}

// degrade reports a tolerated secondary failure.
func (r *Runner) degrade(ctx context.Context, step uint64, name string, err error) {
	r.logger.Warn("secondary variable unavailable, publishing primary only",
		"step", step, "variable", name, "error", err)
	if herr := r.hooks.OnError(ctx, err); herr != nil {
		r.logger.Warn("error hook failed", "error", herr)
	}
}

// checkUtilization warns once, on rank 0, when ranks will sit idle.
func (r *Runner) checkUtilization(step uint64, info types.VariableInfo) {
	if r.warnedIdle || r.group.Rank() != 0 {
		return
	}

	units := len(info.Blocks)
	unit := "blocks"
	if r.cfg.PartitionMode == PartitionRepartition {
		unit = "slabs"
		units = 0
		if len(info.Shape) > 0 {
			units = int(info.Shape[0]) //nolint:gosec // leading extent of a real array
		}
	}

	if units < r.group.Size() {
		r.warnedIdle = true
		r.logger.Warn("world size exceeds available work, some ranks will be idle",
			"step", step, "variable", info.Name, unit, units, "size", r.group.Size())
	}
}

// resolveGeometry applies source attributes and explicit overrides on top of
// the configured geometry.
func (r *Runner) resolveGeometry() mesh.Geometry {
	geom, applied := r.cfg.Mesh.WithAttributes(r.client.Attributes())
	if len(applied) > 0 {
		r.logger.Debug("geometry from source attributes", "attributes", applied)
	}
	if r.overrides.Origin != nil {
		geom.Origin = *r.overrides.Origin
	}
	if r.overrides.Spacing != nil {
		geom.Spacing = *r.overrides.Spacing
	}
	if err := geom.Validate(); err != nil {
		r.logger.Warn("resolved geometry invalid, using configured geometry", "error", err)
		return r.cfg.Mesh
	}

	r.logger.Debug("geometry resolved", "origin", geom.Origin, "spacing", geom.Spacing)

	return geom
}
