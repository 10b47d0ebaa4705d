package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithComputeEntry sets the compute entry point of a compute pipeline.
//
// Parameters:
//   - name: the @compute function name in the module
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compute entry point
func WithComputeEntry(name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.computeEntry = name
	}
}

// WithVertexEntry sets the vertex entry point of a render pipeline.
//
// Parameters:
//   - name: the @vertex function name in the module
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex entry point
func WithVertexEntry(name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexEntry = name
	}
}

// WithFragmentEntry sets the fragment entry point of a render pipeline.
//
// Parameters:
//   - name: the @fragment function name in the module
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment entry point
func WithFragmentEntry(name string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentEntry = name
	}
}

// WithBlendState sets the blend state for this pipeline. A nil state disables blending.
//
// Parameters:
//   - blendState: the blend state to use, e.g. &AlphaBlend
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
