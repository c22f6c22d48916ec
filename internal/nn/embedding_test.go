package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/backend/cpu"
	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
)

func TestNewEmbedding(t *testing.T) {
	ResetNaming()
	backend := cpu.New()

	e := NewEmbedding(nil, backend, 10, 4)

	assert.Equal(t, "embedding", e.Name())
	assert.Equal(t, 10, e.NumEmbed())
	assert.Equal(t, 4, e.EmbedDim())
	assert.Equal(t, tensor.Shape{10, 4}, e.Weight().Shape())
	assert.Equal(t, "embedding/embeddings", e.Weight().Name())

	// Fresh weights are drawn from U(-0.05, 0.05).
	for _, v := range e.Weight().Value().Data() {
		assert.GreaterOrEqual(t, v, float32(-0.05))
		assert.Less(t, v, float32(0.05))
	}
}

func TestNewEmbeddingFromWeight(t *testing.T) {
	ResetNaming()
	backend := cpu.New()
	w, err := tensor.FromSlice([]float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)

	e := NewEmbeddingFromWeight(nil, backend, w, WithName("vocab"))
	assert.Equal(t, 3, e.NumEmbed())
	assert.Equal(t, 2, e.EmbedDim())
	assert.Same(t, w, e.Weight().Value())
}

func TestNewEmbeddingFromWeight_RequiresMatrix(t *testing.T) {
	ResetNaming()
	backend := cpu.New()
	w, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { NewEmbeddingFromWeight(nil, backend, w) })
}

func TestEmbedding_Forward(t *testing.T) {
	ResetNaming()
	backend := cpu.New()
	w, err := tensor.FromSlice([]float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	e := NewEmbeddingFromWeight(nil, backend, w)

	indices, err := tensor.FromSlice([]int32{2, 0, 1}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	out := e.Forward(indices)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{2, 2, 0, 0, 1, 1}, out.Data())
}

func TestEmbedding_SetChild(t *testing.T) {
	ResetNaming()
	backend := cpu.New()
	e := NewEmbedding(nil, backend, 4, 2, WithName("emb"))

	w, err := tensor.FromSlice([]float32{1, 1, 2, 2, 3, 3, 4, 4}, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)
	repl := variable.NewLocal("emb/embeddings", w, true)

	require.NoError(t, e.SetChild(track.Attr("embeddings"), repl))
	assert.Same(t, w, e.Weight().Value())

	err = e.SetChild(track.Attr("kernel"), repl)
	assert.ErrorIs(t, err, track.ErrUnsupportedLeaf)
}
