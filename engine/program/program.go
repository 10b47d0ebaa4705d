// Package program loads compute program sources and discovers their kernel entry points.
package program

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// Language identifies the dialect of a program source.
type Language int

const (
	// LanguageWGSL is a WebGPU shading language module with @compute entry points.
	LanguageWGSL Language = iota
	// LanguageOpenCL is an OpenCL C program with __kernel entry points.
	LanguageOpenCL
)

// EntryPoint returns the function name a program in this language declares for kernel.
//
// Parameters:
//   - kernel: KernelFractal or KernelSmooth
//
// Returns:
//   - string: "fractal_main" for WGSL, "fractal" for OpenCL C
func (l Language) EntryPoint(kernel string) string {
	if l == LanguageWGSL {
		return kernel + wgslEntrySuffix
	}
	return kernel
}

func (l Language) String() string {
	switch l {
	case LanguageWGSL:
		return "wgsl"
	case LanguageOpenCL:
		return "opencl"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// Kernel names every program must provide. Language.EntryPoint maps them to the declared function names.
const (
	KernelFractal = "fractal"
	KernelSmooth  = "smooth"
)

// wgslEntrySuffix is appended to kernel names in WGSL, where "smooth" is a reserved word.
const wgslEntrySuffix = "_main"

// ErrMissingEntryPoint is wrapped by Require when a kernel's entry point is not declared.
var ErrMissingEntryPoint = errors.New("missing kernel entry point")

var (
	// wgslComputeEntryRegex matches @compute functions and captures the entry point name.
	wgslComputeEntryRegex = regexp.MustCompile(`@compute\b[^{;]*?\bfn\s+(\w+)`)

	// openCLKernelRegex matches __kernel or kernel function declarations and captures the name.
	openCLKernelRegex = regexp.MustCompile(`\b(?:__kernel|kernel)\s+void\s+(\w+)\s*\(`)
)

// Program is a loaded compute program source.
type Program struct {
	// Path is the resolved file path, empty for in-memory sources.
	Path string
	// Source is the program text.
	Source string
	// Language is the dialect of Source.
	Language Language
}

// FromSource wraps an in-memory program source.
//
// Parameters:
//   - source: the program text
//   - lang: the dialect of the source
//
// Returns:
//   - *Program: the program
func FromSource(source string, lang Language) *Program {
	return &Program{Source: source, Language: lang}
}

// Load reads a program from disk. Relative paths resolve against the executable's directory.
//
// Parameters:
//   - path: the program file path, ending in .wgsl or .cl
//
// Returns:
//   - *Program: the loaded program
//   - error: an error if the path cannot be resolved, the extension is unknown or the file cannot be read
func Load(path string) (*Program, error) {
	lang, err := LanguageForPath(path)
	if err != nil {
		return nil, err
	}
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read program %q: %w", resolved, err)
	}
	return &Program{Path: resolved, Source: string(data), Language: lang}, nil
}

// Reload re-reads the program from its Path.
//
// Returns:
//   - *Program: a new program holding the current file contents
//   - error: an error if the program has no path or the file cannot be read
func (p *Program) Reload() (*Program, error) {
	if p.Path == "" {
		return nil, errors.New("reload: program has no backing file")
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read program %q: %w", p.Path, err)
	}
	return &Program{Path: p.Path, Source: string(data), Language: p.Language}, nil
}

// ResolvePath makes a relative path absolute against the directory of the running executable.
// Absolute paths are returned cleaned and unchanged otherwise.
//
// Parameters:
//   - path: the path to resolve
//
// Returns:
//   - string: the absolute path
//   - error: an error if the executable location cannot be determined
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), path), nil
}

// LanguageForPath infers the program dialect from the file extension.
//
// Parameters:
//   - path: the program file path
//
// Returns:
//   - Language: LanguageWGSL for .wgsl, LanguageOpenCL for .cl
//   - error: an error for any other extension
func LanguageForPath(path string) (Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wgsl":
		return LanguageWGSL, nil
	case ".cl":
		return LanguageOpenCL, nil
	default:
		return 0, fmt.Errorf("program %q: unknown extension, want .wgsl or .cl", path)
	}
}

// EntryPoints lists the kernel entry points declared by the program in source order.
//
// Returns:
//   - []string: the entry point names
func (p *Program) EntryPoints() []string {
	re := wgslComputeEntryRegex
	if p.Language == LanguageOpenCL {
		re = openCLKernelRegex
	}
	matches := re.FindAllStringSubmatch(StripComments(p.Source), -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Require checks that the entry point of every named kernel is declared.
//
// Parameters:
//   - kernels: the kernel names that must be present, e.g. KernelFractal
//
// Returns:
//   - error: ErrMissingEntryPoint wrapped with the missing entry point names, or nil
func (p *Program) Require(kernels ...string) error {
	declared := p.EntryPoints()
	var missing []string
	for _, k := range kernels {
		if name := p.Language.EntryPoint(k); !slices.Contains(declared, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s program declares %v: %w %s", p.Language, declared, ErrMissingEntryPoint, strings.Join(missing, ", "))
	}
	return nil
}

// Name returns a short display name for logs.
func (p *Program) Name() string {
	if p.Path == "" {
		return "<memory:" + p.Language.String() + ">"
	}
	return filepath.Base(p.Path)
}
