package compute

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitErrorKindsDistinguishable(t *testing.T) {
	cases := []struct {
		kind InitKind
		is   error
	}{
		{NoPlatformFound, ErrNoPlatformFound},
		{NoDeviceFound, ErrNoDeviceFound},
		{ContextCreation, ErrContextCreation},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("startup: %w", &InitError{Kind: tc.kind})
			for _, other := range cases {
				assert.Equal(t, other.is == tc.is, errors.Is(err, other.is), "%s vs %v", tc.kind, other.is)
			}
		})
	}
}

func TestCompileErrorMessage(t *testing.T) {
	err := compileInitError(&CompileError{Program: "fractal.cl", Log: "line 3: expected ';'"})
	assert.Contains(t, err.Error(), "compile")
	assert.Contains(t, err.Error(), "fractal.cl")
	assert.Contains(t, err.Error(), "expected ';'")

	var ce *CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestRuntimeTransferErrorUnwraps(t *testing.T) {
	cause := errors.New("queue lost")
	err := &RuntimeTransferError{Op: "release", Image: "copy", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `compute release "copy": queue lost`, err.Error())
	assert.Equal(t, "compute finish: queue lost", (&RuntimeTransferError{Op: "finish", Err: cause}).Error())
}
