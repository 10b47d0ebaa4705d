package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo holds the view dimension and multisampled flag for a sampled texture type
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout holds the byte size and alignment of a host-shareable WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedBinding is one @group/@binding resource declaration.
type parsedBinding struct {
	group        int
	binding      int
	addressSpace string
	varName      string
	typeName     string
}

// parsedFunction is a top-level fn with its body text and stage attribute, if any.
type parsedFunction struct {
	name          string
	stage         Stage
	isEntry       bool
	workgroupSize [3]uint32
	body          string
}

// parsedStruct is a struct block reduced to its ordered field type names.
type parsedStruct struct {
	name   string
	fields []string
}
