package compute

import (
	"errors"
	"fmt"
)

// InitKind classifies device initialization failures.
type InitKind int

const (
	// NoPlatformFound means no compute platform is available.
	NoPlatformFound InitKind = iota
	// NoDeviceFound means the selected platform exposes no usable device.
	NoDeviceFound
	// ContextCreation means the context or command queue could not be created.
	ContextCreation
	// Compile means the program failed to build.
	Compile
)

func (k InitKind) String() string {
	switch k {
	case NoPlatformFound:
		return "no platform found"
	case NoDeviceFound:
		return "no device found"
	case ContextCreation:
		return "context creation"
	case Compile:
		return "compile"
	default:
		return fmt.Sprintf("init kind(%d)", int(k))
	}
}

var (
	// ErrNoPlatformFound matches any InitError of kind NoPlatformFound with errors.Is.
	ErrNoPlatformFound = errors.New("no compute platform found")
	// ErrNoDeviceFound matches any InitError of kind NoDeviceFound with errors.Is.
	ErrNoDeviceFound = errors.New("no compute device found")
	// ErrContextCreation matches any InitError of kind ContextCreation with errors.Is.
	ErrContextCreation = errors.New("compute context creation failed")
	// ErrUnknownKernel is returned by Invoke for a kernel name the program does not provide.
	ErrUnknownKernel = errors.New("unknown kernel")
	// ErrKernelArgs is returned by Invoke when the argument list does not match the kernel.
	ErrKernelArgs = errors.New("invalid kernel arguments")
)

// InitError is returned by device constructors. It is fatal at startup.
type InitError struct {
	Kind InitKind
	Err  error
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return "compute init: " + e.Kind.String()
	}
	return fmt.Sprintf("compute init: %s: %v", e.Kind, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match an InitError against the kind sentinels.
func (e *InitError) Is(target error) bool {
	switch target {
	case ErrNoPlatformFound:
		return e.Kind == NoPlatformFound
	case ErrNoDeviceFound:
		return e.Kind == NoDeviceFound
	case ErrContextCreation:
		return e.Kind == ContextCreation
	}
	return false
}

// CompileError carries the compiler diagnostic log of a failed program build.
type CompileError struct {
	Program string
	Log     string
}

func (e *CompileError) Error() string {
	if e.Program == "" {
		return "program build failed:\n" + e.Log
	}
	return fmt.Sprintf("program %s build failed:\n%s", e.Program, e.Log)
}

// RuntimeTransferError reports a failed acquire, release, enqueue or copy on a shared image.
type RuntimeTransferError struct {
	// Op is one of "acquire", "release", "enqueue", "copy" or "finish".
	Op string
	// Image is the label of the image involved, empty when the failure is queue-wide.
	Image string
	Err   error
}

func (e *RuntimeTransferError) Error() string {
	if e.Image == "" {
		return fmt.Sprintf("compute %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("compute %s %q: %v", e.Op, e.Image, e.Err)
}

func (e *RuntimeTransferError) Unwrap() error {
	return e.Err
}

func compileInitError(err *CompileError) *InitError {
	return &InitError{Kind: Compile, Err: err}
}
