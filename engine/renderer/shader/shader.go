package shader

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/cogentcore/webgpu/wgpu"
)

// Stage identifies the pipeline stage an entry point runs in.
type Stage int

const (
	// StageCompute marks an @compute entry point.
	StageCompute Stage = iota

	// StageVertex marks an @vertex entry point.
	StageVertex

	// StageFragment marks an @fragment entry point.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Visibility maps the stage to its wgpu visibility flag.
func (s Stage) Visibility() wgpu.ShaderStage {
	switch s {
	case StageCompute:
		return wgpu.ShaderStageCompute
	case StageVertex:
		return wgpu.ShaderStageVertex
	case StageFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

// EntryPoint describes one entry function of a WGSL module and the resources it touches.
type EntryPoint struct {
	// Name is the function name passed to pipeline creation.
	Name string
	// Stage is the pipeline stage of the function.
	Stage Stage
	// WorkgroupSize is the @workgroup_size of compute entry points, [0, 0, 0] otherwise.
	WorkgroupSize [3]uint32
	// Layouts holds the bind group layouts restricted to the bindings this entry point references.
	Layouts map[int]wgpu.BindGroupLayoutDescriptor
	// VarNames maps group and binding to the declared variable name.
	VarNames map[int]map[int]string
}

// Binding looks up the binding index of varName in group.
//
// Parameters:
//   - group: the bind group index
//   - varName: the variable name within the group
//
// Returns:
//   - int: the binding index associated with the variable name, or -1 if not found
//   - bool: true if the variable name was found, false otherwise
func (e EntryPoint) Binding(group int, varName string) (int, bool) {
	for binding, name := range e.VarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

// module is the implementation of the Module interface.
type module struct {
	key         string
	source      string
	entryPoints map[string]EntryPoint
	order       []string
	descriptor  *wgpu.ShaderModuleDescriptor
}

// Module is a parsed WGSL source holding everything pipeline creation needs for each entry point.
// The same source can carry several compute kernels or a vertex and fragment pair.
type Module interface {
	// Key retrieves the identifier used as the module label.
	//
	// Returns:
	//   - string: the module's key
	Key() string

	// Source retrieves the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the module
	Source() string

	// Descriptor returns the shader module descriptor used to create the GPU module.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Descriptor() *wgpu.ShaderModuleDescriptor

	// EntryPoint retrieves a parsed entry point by name.
	//
	// Parameters:
	//   - name: the entry function name
	//
	// Returns:
	//   - EntryPoint: the parsed entry point
	//   - bool: false if the module declares no such entry point
	EntryPoint(name string) (EntryPoint, bool)

	// EntryPoints lists entry point names in source order.
	//
	// Returns:
	//   - []string: the entry function names
	EntryPoints() []string

	// MergedLayouts unions the layouts of several entry points, OR-ing the visibility of shared bindings.
	// Render pipelines use this to build one layout for a vertex and fragment pair.
	//
	// Parameters:
	//   - names: the entry points to merge
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: merged layouts keyed by group index
	MergedLayouts(names ...string) map[int]wgpu.BindGroupLayoutDescriptor
}

var _ Module = &module{}

// NewModule parses WGSL source into a Module.
//
// Parameters:
//   - key: a label for the module, used in GPU object labels and logs
//   - source: the WGSL source
//
// Returns:
//   - Module: the parsed module
//   - error: an error if the source declares no entry points
func NewModule(key, source string) (Module, error) {
	cleaned := program.StripComments(source)
	bindings := parseBindings(cleaned)
	structs := parseStructSizes(cleaned)
	fns, order := parseFunctions(cleaned)
	if len(order) == 0 {
		return nil, fmt.Errorf("shader %s: no entry points", key)
	}

	m := &module{
		key:         key,
		source:      source,
		entryPoints: make(map[string]EntryPoint, len(order)),
		order:       order,
		descriptor: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: source,
			},
		},
	}
	for _, name := range order {
		fn := fns[name]
		layouts, varNames := buildLayouts(bindings, referencedIdents(name, fns), fn.stage.Visibility(), structs)
		m.entryPoints[name] = EntryPoint{
			Name:          name,
			Stage:         fn.stage,
			WorkgroupSize: fn.workgroupSize,
			Layouts:       layouts,
			VarNames:      varNames,
		}
	}
	return m, nil
}

// NewModuleFromProgram parses a loaded WGSL program.
//
// Parameters:
//   - p: a program whose Language is LanguageWGSL
//
// Returns:
//   - Module: the parsed module
//   - error: an error if the program is not WGSL or declares no entry points
func NewModuleFromProgram(p *program.Program) (Module, error) {
	if p.Language != program.LanguageWGSL {
		return nil, fmt.Errorf("shader %s: %s programs cannot be compiled by wgpu", p.Name(), p.Language)
	}
	return NewModule(p.Name(), p.Source)
}

func (m *module) Key() string {
	return m.key
}

func (m *module) Source() string {
	return m.source
}

func (m *module) Descriptor() *wgpu.ShaderModuleDescriptor {
	return m.descriptor
}

func (m *module) EntryPoint(name string) (EntryPoint, bool) {
	ep, ok := m.entryPoints[name]
	return ep, ok
}

func (m *module) EntryPoints() []string {
	return append([]string(nil), m.order...)
}

func (m *module) MergedLayouts(names ...string) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, name := range names {
		ep, ok := m.entryPoints[name]
		if !ok {
			continue
		}
		for g, desc := range ep.Layouts {
			if merged[g] == nil {
				merged[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if prev, ok := merged[g][e.Binding]; ok {
					e.Visibility |= prev.Visibility
				}
				merged[g][e.Binding] = e
			}
		}
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for g, entries := range merged {
		desc := wgpu.BindGroupLayoutDescriptor{}
		for _, binding := range slices.Sorted(maps.Keys(entries)) {
			desc.Entries = append(desc.Entries, entries[binding])
		}
		result[g] = desc
	}
	return result
}
