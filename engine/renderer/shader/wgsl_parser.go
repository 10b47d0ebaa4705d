package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslSampledTextureMap maps WGSL sampled texture base names to their view dimension and multisampled flag
var wgslSampledTextureMap = map[string]sampledTextureInfo{
	"texture_1d":              {wgpu.TextureViewDimension1D, false},
	"texture_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":              {wgpu.TextureViewDimension3D, false},
	"texture_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// wgslStorageTextureDimMap maps WGSL storage texture base names to their view dimension
var wgslStorageTextureDimMap = map[string]wgpu.TextureViewDimension{
	"texture_storage_1d":       wgpu.TextureViewDimension1D,
	"texture_storage_2d":       wgpu.TextureViewDimension2D,
	"texture_storage_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_storage_3d":       wgpu.TextureViewDimension3D,
}

// wgslSampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type
var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// wgslStorageAccessMap maps WGSL access mode keywords to their wgpu storage texture access
var wgslStorageAccessMap = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

// wgslTexelFormatMap maps the storage texel formats the fractal images can use.
var wgslTexelFormatMap = map[string]wgpu.TextureFormat{
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"rgba8snorm":  wgpu.TextureFormatRGBA8Snorm,
	"rgba8uint":   wgpu.TextureFormatRGBA8Uint,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"r32float":    wgpu.TextureFormatR32Float,
	"bgra8unorm":  wgpu.TextureFormatBGRA8Unorm,
}

// wgslPrimitiveLayoutMap holds size and alignment of the scalar and vector types uniforms may use.
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":       {4, 4},
	"i32":       {4, 4},
	"u32":       {4, 4},
	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// fieldTypeRegex captures the type of a struct member, ignoring leading attributes
	fieldTypeRegex = regexp.MustCompile(`(?:@\w+(?:\([^)]*\))?\s*)*\w+\s*:\s*(.+)`)

	// fnDeclRegex matches the start of every top-level function and captures the
	// attribute prefix and the function name
	fnDeclRegex = regexp.MustCompile(`((?:@\w+(?:\([^)]*\))?\s*)*)\bfn\s+(\w+)\s*\(`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> params: FractalParams;
	// or handle types: @group(0) @binding(1) var outImage: texture_storage_2d<rgba8unorm, write>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	identRegex = regexp.MustCompile(`\b[A-Za-z_]\w*\b`)
)

// parseBindings extracts every @group(N) @binding(M) declaration from comment-free WGSL.
func parseBindings(cleaned string) []parsedBinding {
	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	out := make([]parsedBinding, 0, len(matches))
	for _, m := range matches {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		out = append(out, parsedBinding{
			group:        group,
			binding:      binding,
			addressSpace: strings.TrimSpace(m[3]),
			varName:      strings.TrimSpace(m[4]),
			typeName:     strings.TrimSpace(m[5]),
		})
	}
	return out
}

// parseFunctions finds every top-level function, its stage attribute and its brace-matched body.
//
// Parameters:
//   - cleaned: WGSL source with comments already stripped
//
// Returns:
//   - map[string]parsedFunction: functions keyed by name
//   - []string: entry point names in source order
func parseFunctions(cleaned string) (map[string]parsedFunction, []string) {
	fns := make(map[string]parsedFunction)
	var entries []string
	for _, loc := range fnDeclRegex.FindAllStringSubmatchIndex(cleaned, -1) {
		attrs := cleaned[loc[2]:loc[3]]
		name := cleaned[loc[4]:loc[5]]
		body := functionBody(cleaned, loc[1])

		fn := parsedFunction{name: name, body: body}
		switch {
		case strings.Contains(attrs, "@compute"):
			fn.stage, fn.isEntry = StageCompute, true
			fn.workgroupSize = parseWorkgroupSize(attrs)
		case strings.Contains(attrs, "@vertex"):
			fn.stage, fn.isEntry = StageVertex, true
		case strings.Contains(attrs, "@fragment"):
			fn.stage, fn.isEntry = StageFragment, true
		}
		fns[name] = fn
		if fn.isEntry {
			entries = append(entries, name)
		}
	}
	return fns, entries
}

// functionBody returns the text between the first '{' at or after from and its matching '}'.
func functionBody(source string, from int) string {
	open := strings.IndexByte(source[from:], '{')
	if open < 0 {
		return ""
	}
	start := from + open + 1
	depth := 1
	for i := start; i < len(source); i++ {
		switch source[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return source[start:i]
			}
		}
	}
	return source[start:]
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions.
// Omitted dimensions default to 1 and a missing attribute yields [1, 1, 1].
func parseWorkgroupSize(attrs string) [3]uint32 {
	result := [3]uint32{1, 1, 1}
	match := workgroupSizeRegex.FindStringSubmatch(attrs)
	if match == nil {
		return result
	}
	for i := range 3 {
		if match[i+1] == "" {
			continue
		}
		if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
			result[i] = uint32(v)
		}
	}
	return result
}

// referencedIdents collects the identifiers an entry point uses, following calls into helper functions.
func referencedIdents(entry string, fns map[string]parsedFunction) map[string]bool {
	seen := map[string]bool{entry: true}
	idents := make(map[string]bool)
	queue := []string{entry}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, id := range identRegex.FindAllString(fns[name].body, -1) {
			idents[id] = true
			if _, isFn := fns[id]; isFn && !seen[id] {
				seen[id] = true
				queue = append(queue, id)
			}
		}
	}
	return idents
}

// buildLayouts turns the bindings an entry point references into layout descriptors grouped by group index.
// Entries inside each descriptor are sorted by binding.
func buildLayouts(bindings []parsedBinding, used map[string]bool, visibility wgpu.ShaderStage, structs map[string]wgslTypeLayout) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	for _, b := range bindings {
		if !used[b.varName] {
			continue
		}
		entry := classifyResource(uint32(b.binding), visibility, b.addressSpace, b.typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(b.typeName, structs); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[b.group] = append(groups[b.group], entry)
		if varNames[b.group] == nil {
			varNames[b.group] = make(map[int]string)
		}
		varNames[b.group][b.binding] = b.varName
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result, varNames
}

// parseStructSizes computes sizes for structs made of the primitive types in wgslPrimitiveLayoutMap
// or of previously resolved structs.
func parseStructSizes(cleaned string) map[string]wgslTypeLayout {
	var structs []parsedStruct
	for _, m := range structBlockRegex.FindAllStringSubmatch(cleaned, -1) {
		ps := parsedStruct{name: m[1]}
		for _, member := range splitAtTopLevelCommas(m[2]) {
			member = strings.TrimSpace(member)
			if fm := fieldTypeRegex.FindStringSubmatch(member); fm != nil {
				ps.fields = append(ps.fields, strings.TrimSpace(fm[1]))
			}
		}
		structs = append(structs, ps)
	}

	resolved := make(map[string]wgslTypeLayout, len(structs))
	for progress := true; progress; {
		progress = false
		for _, ps := range structs {
			if _, done := resolved[ps.name]; done {
				continue
			}
			if layout, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				progress = true
			}
		}
	}
	return resolved
}

// splitAtTopLevelCommas splits a struct body at commas not nested inside angle brackets.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
