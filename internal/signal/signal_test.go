package signal

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireCodes(t *testing.T) {
	assert.Equal(t, int32(0), int32(Red))
	assert.Equal(t, int32(1), int32(Yellow))
	assert.Equal(t, int32(2), int32(Green))
	assert.Equal(t, int32(4), int32(Unknown))
}

func TestStringAndParse(t *testing.T) {
	for _, s := range All {
		assert.True(t, s.Valid())
		parsed, err := Parse(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	parsed, err := Parse(" green ")
	require.NoError(t, err)
	assert.Equal(t, Green, parsed)

	parsed, err = Parse("blue")
	assert.True(t, errors.Is(err, ErrUnknownSignal), "got %v", err)
	assert.Contains(t, err.Error(), `"blue"`)
	assert.Equal(t, Unknown, parsed)

	_, err = Parse("")
	assert.True(t, errors.Is(err, ErrUnknownSignal))
}

func TestInvalidSignal(t *testing.T) {
	s := Signal(3)
	assert.False(t, s.Valid())
	assert.Equal(t, "Signal(3)", s.String())
}
