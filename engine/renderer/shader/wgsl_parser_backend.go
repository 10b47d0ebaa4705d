package shader

import (
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type name using primitives and already computed structs.
func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	layout, ok := knownTypes[typeName]
	return layout, ok
}

// structLayout places each field at its next aligned offset and rounds the total
// up to the widest member alignment.
func structLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, typeName := range ps.fields {
		field, ok := resolveTypeLayout(typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(field.align, offset) + field.size
		maxAlign = max(maxAlign, field.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// classifyResource creates a wgpu.BindGroupLayoutEntry from a parsed WGSL resource declaration.
// It determines the resource category (buffer, texture, sampler, storage texture) from the
// address space qualifier and type name, and populates the corresponding layout fields.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier (e.g. "uniform", "storage, read_write"), empty for handle types
//   - typeName: the WGSL type string (e.g. "FractalParams", "texture_2d<f32>", "sampler")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a fully populated layout entry for the resource
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	if addressSpace != "" {
		switch {
		case addressSpace == "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case strings.HasPrefix(addressSpace, "storage"):
			if strings.Contains(addressSpace, "read_write") {
				entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			} else {
				entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			}
		}
		return entry
	}

	switch {
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_storage_"):
		classifyStorageTexture(typeName, &entry)
	case strings.HasPrefix(typeName, "texture_"):
		classifySampledTexture(typeName, &entry)
	}
	return entry
}

// classifySampledTexture fills the texture layout for types like "texture_2d<f32>".
func classifySampledTexture(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, param := splitTypeParams(typeName)
	if info, ok := wgslSampledTextureMap[base]; ok {
		entry.Texture.ViewDimension = info.viewDimension
		entry.Texture.Multisampled = info.multisampled
	}
	if st, ok := wgslSampleTypeMap[param]; ok {
		entry.Texture.SampleType = st
	}
}

// classifyStorageTexture fills the storage texture layout for types like
// "texture_storage_2d<rgba8unorm, write>".
func classifyStorageTexture(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, params := splitTypeParams(typeName)
	if dim, ok := wgslStorageTextureDimMap[base]; ok {
		entry.StorageTexture.ViewDimension = dim
	}
	formatStr, accessStr, _ := strings.Cut(params, ",")
	if format, ok := wgslTexelFormatMap[strings.TrimSpace(formatStr)]; ok {
		entry.StorageTexture.Format = format
	}
	if access, ok := wgslStorageAccessMap[strings.TrimSpace(accessStr)]; ok {
		entry.StorageTexture.Access = access
	}
}

// splitTypeParams splits "texture_2d<f32>" into ("texture_2d", "f32").
// Types without parameters return an empty params string.
func splitTypeParams(typeName string) (base string, params string) {
	before, after, ok := strings.Cut(typeName, "<")
	if !ok {
		return typeName, ""
	}
	return before, strings.TrimSpace(strings.TrimSuffix(after, ">"))
}
