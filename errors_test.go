package v9kfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_DefaultMessage(t *testing.T) {
	err := New(KindNotFound)
	assert.Equal(t, defaultMessage[KindNotFound], err.Error())
}

func TestError_WithMessage(t *testing.T) {
	err := ErrNotFound.WithMessage("path %q", "\\FOO.TXT")
	assert.Contains(t, err.Error(), "FOO.TXT")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestError_Wrap(t *testing.T) {
	cause := errors.New("disk read failed")
	err := ErrIOError.Wrap(cause)
	assert.True(t, errors.Is(err, ErrIOError))
	require.ErrorIs(t, err, cause)
}

func TestError_Errno(t *testing.T) {
	assert.Equal(t, "no such file or directory", ErrNotFound.Errno().Error())
}

func TestError_IsDistinguishesKinds(t *testing.T) {
	assert.False(t, errors.Is(ErrNotFound, ErrIsADirectory))
}
