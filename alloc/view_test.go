package alloc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewHeader uses only byte-sized fields so its in-memory image is the same
// on every architecture.
type viewHeader struct {
	Magic   byte
	Version byte
	Count   byte
	Pad     [5]byte
}

func Test_ViewAs_OverlaysAllocation(t *testing.T) {
	a := newTestAllocator(t)

	buf, err := a.Allocate(LayoutOf(64))
	require.NoError(t, err)

	var hdr *viewHeader
	require.NoError(t, ViewAs(buf, &hdr))
	require.NotNil(t, hdr)

	hdr.Magic = 0x4D
	hdr.Version = 2
	assert.Equal(t, byte(0x4D), buf[0], "writes through the view land in the allocation")
	assert.Equal(t, byte(2), buf[1])

	buf[2] = 9
	assert.Equal(t, byte(9), hdr.Count, "writes to the allocation show through the view")

	// And through to the backing file.
	require.NoError(t, a.Flush(buf))
	path, ok := a.PathOf(buf)
	require.True(t, ok)
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0x4D), onDisk[0])
	assert.Equal(t, byte(2), onDisk[1])
	assert.Equal(t, byte(9), onDisk[2])

	require.NoError(t, a.Deallocate(buf, LayoutOf(64)))
}

func Test_ViewAs_ExactFit(t *testing.T) {
	buf := make([]byte, 8)

	var hdr *viewHeader
	require.NoError(t, ViewAs(buf, &hdr), "a view needing exactly len(buf) bytes fits")
	hdr.Magic = 1
	assert.Equal(t, byte(1), buf[0])
}

func Test_ViewAs_RejectsBadTargets(t *testing.T) {
	buf := make([]byte, 64)

	var hdr *viewHeader
	err := ViewAs(buf, hdr)
	require.Error(t, err, "a plain pointer is not a view target")
	assert.Contains(t, err.Error(), "pointer to a pointer")

	err = ViewAs(buf, viewHeader{})
	require.Error(t, err, "a value is not a view target")
	assert.Contains(t, err.Error(), "pointer to a pointer")
}

func Test_ViewAs_RejectsOversizedType(t *testing.T) {
	buf := make([]byte, 4)

	var hdr *viewHeader
	err := ViewAs(buf, &hdr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 8 bytes, allocation has 4")
	assert.Nil(t, hdr, "a failed view must not assign")
}
