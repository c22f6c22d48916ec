package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/dtensor"
)

func newTestMesh(t *testing.T) *dtensor.Mesh {
	t.Helper()
	mesh, err := dtensor.NewMesh("training",
		[]dtensor.MeshDim{{Name: "batch", Size: 2}, {Name: "model", Size: 2}},
		[]string{"cpu:0", "cpu:1", "cpu:2", "cpu:3"})
	require.NoError(t, err)
	return mesh
}

func newTestLayout(t *testing.T, mesh *dtensor.Mesh, sharding ...string) dtensor.Layout {
	t.Helper()
	l, err := dtensor.NewLayout(mesh, sharding...)
	require.NoError(t, err)
	return l
}

func TestLayoutMap_SetGet(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	l1 := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set("d1.kernel", l1))

	got, ok := lm.Get("d1.kernel")
	require.True(t, ok)
	assert.True(t, got.Equal(l1))

	_, ok = lm.Get("d2.kernel")
	assert.False(t, ok)

	assert.Equal(t, 1, lm.Len())
	assert.Same(t, mesh, lm.DefaultMesh())
}

func TestLayoutMap_RegexFallback(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	l1 := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set(`d1.*kernel`, l1))

	got, ok := lm.Get("d1.kernel")
	require.True(t, ok)
	assert.True(t, got.Equal(l1))

	// Patterns match at the start of the query, not anywhere inside it.
	l2 := newTestLayout(t, mesh, dtensor.Unsharded, "model")
	require.NoError(t, lm.Set(`bias`, l2))
	_, ok = lm.Get("d1.bias")
	assert.False(t, ok)
	got, ok = lm.Get("bias_correction")
	require.True(t, ok)
	assert.True(t, got.Equal(l2))
}

func TestLayoutMap_FirstRegisteredPatternWins(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	broad := newTestLayout(t, mesh, "batch", dtensor.Unsharded)
	narrow := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set(`dense.*`, broad))
	require.NoError(t, lm.Set(`dense_1.*`, narrow))

	// Both patterns match; the earlier registration takes precedence.
	got, ok := lm.Get("dense_1.kernel")
	require.True(t, ok)
	assert.True(t, got.Equal(broad))
}

func TestLayoutMap_ExactMatchBeatsEarlierPattern(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	patternLayout := newTestLayout(t, mesh, "batch", dtensor.Unsharded)
	exactLayout := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set(`.*`, patternLayout))
	require.NoError(t, lm.Set(`d1.kernel`, exactLayout))

	got, ok := lm.Get("d1.kernel")
	require.True(t, ok)
	assert.True(t, got.Equal(exactLayout))
}

func TestLayoutMap_DuplicateKey(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	l1 := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	l2 := newTestLayout(t, mesh, "batch", dtensor.Unsharded)
	require.NoError(t, lm.Set("d1.kernel", l1))

	err := lm.Set("d1.kernel", l2)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// The original binding is untouched.
	got, ok := lm.Get("d1.kernel")
	require.True(t, ok)
	assert.True(t, got.Equal(l1))
	assert.Equal(t, 1, lm.Len())
}

func TestLayoutMap_InvalidLayout(t *testing.T) {
	lm := NewLayoutMap(newTestMesh(t))
	err := lm.Set("d1.kernel", dtensor.Layout{})
	assert.ErrorIs(t, err, ErrInvalidLayout)
	assert.Equal(t, 0, lm.Len())
}

func TestLayoutMap_UncompilableKeyIsExactOnly(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	l1 := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set(`d1.kernel[`, l1))

	got, ok := lm.Get(`d1.kernel[`)
	require.True(t, ok)
	assert.True(t, got.Equal(l1))

	// A broken pattern never participates in the fallback scan, and does
	// not poison lookups that fall through to later keys.
	l2 := newTestLayout(t, mesh, "batch", dtensor.Unsharded)
	require.NoError(t, lm.Set(`d2.*`, l2))
	got, ok = lm.Get("d2.bias")
	require.True(t, ok)
	assert.True(t, got.Equal(l2))
}

func TestLayoutMap_Delete(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)

	l1 := newTestLayout(t, mesh, "model", dtensor.Unsharded)
	require.NoError(t, lm.Set("d1.kernel", l1))
	require.NoError(t, lm.Delete("d1.kernel"))

	_, ok := lm.Get("d1.kernel")
	assert.False(t, ok)

	assert.ErrorIs(t, lm.Delete("d1.kernel"), ErrKeyNotFound)
}

func TestLayoutMap_KeysInInsertionOrder(t *testing.T) {
	mesh := newTestMesh(t)
	lm := NewLayoutMap(mesh)
	l := newTestLayout(t, mesh, "model", dtensor.Unsharded)

	require.NoError(t, lm.Set("zz", l))
	require.NoError(t, lm.Set("aa", l))
	require.NoError(t, lm.Set("mm", l))

	assert.Equal(t, []string{"zz", "aa", "mm"}, lm.Keys())
}

func TestLayoutMap_NilDefaultMesh(t *testing.T) {
	lm := NewLayoutMap(nil)
	assert.Nil(t, lm.DefaultMesh())
}
