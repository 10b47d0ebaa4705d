// Package shared implements the image resource handed back and forth between the compute device and the display surface.
//
// An Image is owned by exactly one side at a time. The display owns it between frames; the compute device owns it
// between Acquire and Release. Ownership only changes through BeginCompute and EndCompute.
package shared

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-frac/common"
)

// Owner identifies the execution context that may touch an Image.
type Owner int

const (
	// OwnerDisplay means the rasterization side may sample or upload the image.
	OwnerDisplay Owner = iota
	// OwnerCompute means the compute device may read or write the image.
	OwnerCompute
)

func (o Owner) String() string {
	switch o {
	case OwnerDisplay:
		return "display"
	case OwnerCompute:
		return "compute"
	default:
		return fmt.Sprintf("owner(%d)", int(o))
	}
}

// ErrOwnership is returned when an operation is attempted by the side that does not own the image.
var ErrOwnership = errors.New("shared image ownership violation")

// Image is a fixed-size RGBA8 image shared between the compute device and the display surface.
type Image struct {
	mu sync.Mutex

	label  string
	extent common.Extent
	owner  Owner

	// host is the host-visible pixel mirror used by devices that stage through system memory.
	host  *image.RGBA
	dirty bool

	// handle is the display-side resource backing the image (a GPU texture), set by the display surface.
	handle any
}

// NewImage creates a display-owned image of the given size with a zeroed host mirror.
//
// Parameters:
//   - label: a debug name such as "target" or "copy"
//   - width: image width in pixels, must be positive
//   - height: image height in pixels, must be positive
//
// Returns:
//   - *Image: the new image
//   - error: an error if the size is not positive
func NewImage(label string, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("shared image %q: invalid size %dx%d", label, width, height)
	}
	return &Image{
		label:  label,
		extent: common.Extent{Width: width, Height: height},
		owner:  OwnerDisplay,
		host:   image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// Label returns the debug name of the image.
func (i *Image) Label() string {
	return i.label
}

// Extent returns the fixed image size.
func (i *Image) Extent() common.Extent {
	return i.extent
}

// Owner returns the side currently owning the image.
func (i *Image) Owner() Owner {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.owner
}

// BeginCompute transfers ownership from the display to the compute device.
//
// Returns:
//   - error: ErrOwnership if the compute device already owns the image
func (i *Image) BeginCompute() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.owner != OwnerDisplay {
		return fmt.Errorf("acquire %q: owned by %s: %w", i.label, i.owner, ErrOwnership)
	}
	i.owner = OwnerCompute
	return nil
}

// EndCompute transfers ownership from the compute device back to the display.
//
// Parameters:
//   - published: true when the compute side wrote new host pixels the display must upload
//
// Returns:
//   - error: ErrOwnership if the display already owns the image
func (i *Image) EndCompute(published bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.owner != OwnerCompute {
		return fmt.Errorf("release %q: owned by %s: %w", i.label, i.owner, ErrOwnership)
	}
	i.owner = OwnerDisplay
	if published {
		i.dirty = true
	}
	return nil
}

// Host returns the host pixel mirror. Callers must own the image through the compute side
// (or be the display side uploading it) while touching the pixels.
func (i *Image) Host() *image.RGBA {
	return i.host
}

// TakeDirty reports whether the host mirror holds pixels not yet uploaded to the display resource
// and clears the flag. Only the display side may call it.
//
// Returns:
//   - bool: true if the display must upload Host() before sampling
//   - error: ErrOwnership if the compute device owns the image
func (i *Image) TakeDirty() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.owner != OwnerDisplay {
		return false, fmt.Errorf("draw %q: owned by %s: %w", i.label, i.owner, ErrOwnership)
	}
	d := i.dirty
	i.dirty = false
	return d, nil
}

// Handle returns the display-side resource attached with SetHandle, or nil.
func (i *Image) Handle() any {
	return i.handle
}

// SetHandle attaches the display-side resource backing the image.
func (i *Image) SetHandle(h any) {
	i.handle = h
}

// Contains reports whether the region at o with extent e lies inside the image.
//
// Parameters:
//   - o: region origin
//   - e: region extent
//
// Returns:
//   - bool: true if the region is non-empty and fully inside the image
func (i *Image) Contains(o common.Origin, e common.Extent) bool {
	if e.Empty() || o.X < 0 || o.Y < 0 {
		return false
	}
	return o.X+e.Width <= i.extent.Width && o.Y+e.Height <= i.extent.Height
}
