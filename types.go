package insitu

import "github.com/arloliu/insitu/types"

// Re-export types from the types package.
//
// Internal packages depend on types without depending on the root package;
// users get insitu.MeshPayload, insitu.Logger, etc. from one import.
type (
	Block          = types.Block
	BlockInfo      = types.BlockInfo
	VariableInfo   = types.VariableInfo
	SlabDescriptor = types.SlabDescriptor
	StepContext    = types.StepContext
	StepStatus     = types.StepStatus
	WaitMode       = types.WaitMode
	WaitPolicy     = types.WaitPolicy
	PartitionMode  = types.PartitionMode
	LoopState      = types.LoopState
	MeshPayload    = types.MeshPayload
	Domain         = types.Domain
	Field          = types.Field
	UniformCoords  = types.UniformCoords
	BackendConfig  = types.BackendConfig
	Action         = types.Action
	OpError        = types.OpError
)

// Re-export interfaces from the types package for convenience.
type (
	StepEngine    = types.StepEngine
	Backend       = types.Backend
	ProcessGroup  = types.ProcessGroup
	MetricsSink   = types.MetricsSink
	BlockAssigner = types.BlockAssigner
	Logger        = types.Logger
	Hooks         = types.Hooks
)

// Re-export constants from the types package.
const (
	StepReady       = types.StepReady
	StepEndOfStream = types.StepEndOfStream
	StepTimedOut    = types.StepTimedOut

	WaitBlock   = types.WaitBlock
	WaitTimeout = types.WaitTimeout

	PartitionPreserve    = types.PartitionPreserve
	PartitionRepartition = types.PartitionRepartition

	LoopIdle       = types.LoopIdle
	LoopStepReady  = types.LoopStepReady
	LoopPublishing = types.LoopPublishing
	LoopDraining   = types.LoopDraining
	LoopTerminated = types.LoopTerminated
)
