package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueUint(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, UniqueUint([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, UniqueUint(nil))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueStrings([]string{"a", "b", "a"}))
	assert.Empty(t, UniqueStrings(nil))
	assert.Equal(t, []string{"GO", "go"}, UniqueStrings([]string{"GO", "go", "GO"}))
}
