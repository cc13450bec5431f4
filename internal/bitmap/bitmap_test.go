package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteSize(t *testing.T) {
	assert.Equal(t, 0, ByteSize(0))
	assert.Equal(t, 1, ByteSize(1))
	assert.Equal(t, 1, ByteSize(8))
	assert.Equal(t, 2, ByteSize(9))
}

func TestWrapMutatesUnderlyingSlice(t *testing.T) {
	region := make([]byte, ByteSize(16))
	m := Wrap(region, 16)

	m.Set(3, true)
	assert.NotZero(t, region[0], "Set should mutate the wrapped slice in place")

	m2 := Wrap(region, 16)
	assert.True(t, m2.Get(3), "a second Map over the same region should see the first's writes")
}

func TestFindFirstClear(t *testing.T) {
	region := make([]byte, ByteSize(8))
	m := Wrap(region, 8)

	for i := 0; i < 3; i++ {
		m.Set(i, true)
	}
	i, ok := m.FindFirstClear()
	require.True(t, ok)
	assert.Equal(t, 3, i)
}

func TestFindFirstClearExhausted(t *testing.T) {
	region := make([]byte, ByteSize(4))
	m := Wrap(region, 4)
	for i := 0; i < 4; i++ {
		m.Set(i, true)
	}
	_, ok := m.FindFirstClear()
	assert.False(t, ok)
}
