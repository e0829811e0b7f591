package errclass_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jvs-project/regis/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisError_Error(t *testing.T) {
	err := errclass.ErrNotFound.WithMessage("visitor 7 not found")
	assert.Equal(t, "E_NOT_FOUND: visitor 7 not found", err.Error())
}

func TestRegisError_Error_WithoutMessage(t *testing.T) {
	assert.Equal(t, "E_VALIDATION", errclass.ErrValidation.Error())
}

func TestRegisError_Is(t *testing.T) {
	err := errclass.ErrPermissionDenied.WithMessage("readonly cannot create")
	require.True(t, errors.Is(err, errclass.ErrPermissionDenied))
	require.False(t, errors.Is(err, errclass.ErrAuthFailure))
}

func TestRegisError_Is_ThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("create visitor: %w", errclass.ErrValidation.WithMessage("Name is required"))
	assert.True(t, errors.Is(err, errclass.ErrValidation))
	assert.Equal(t, "E_VALIDATION", errclass.Code(err))
}

func TestRegisError_Wrap(t *testing.T) {
	err := errclass.ErrIOFailure.Wrap(os.ErrPermission, "append to %s", "visitors")
	assert.True(t, errors.Is(err, errclass.ErrIOFailure))
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Equal(t, "E_IO_FAILURE: append to visitors: permission denied", err.Error())
}

func TestRegisError_Wrap_EmptyMessage(t *testing.T) {
	err := errclass.ErrIOFailure.Wrap(errors.New("disk full"), "")
	assert.Equal(t, "E_IO_FAILURE: disk full", err.Error())
}

func TestRegisError_WithMessagef(t *testing.T) {
	err := errclass.ErrOutOfRange.WithMessagef("row %d of %d", 5, 3)
	assert.Equal(t, "E_OUT_OF_RANGE", err.Code)
	assert.Equal(t, "row 5 of 3", err.Message)
	// base class is not mutated
	assert.Empty(t, errclass.ErrOutOfRange.Message)
}

func TestCode_PlainError(t *testing.T) {
	assert.Equal(t, "", errclass.Code(errors.New("plain")))
	assert.Equal(t, "", errclass.Code(nil))
}

func TestRegisError_AllClassesDistinct(t *testing.T) {
	all := []*errclass.RegisError{
		errclass.ErrNotFound,
		errclass.ErrOutOfRange,
		errclass.ErrValidation,
		errclass.ErrAuthFailure,
		errclass.ErrIOFailure,
		errclass.ErrPermissionDenied,
		errclass.ErrNotLoggedIn,
		errclass.ErrFormatUnsupported,
		errclass.ErrConfigInvalid,
	}
	seen := map[string]bool{}
	for _, e := range all {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}
}
