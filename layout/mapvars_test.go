package layout_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/dtensor"
	"github.com/weft-ml/weft/internal/backend/cpu"
	"github.com/weft-ml/weft/internal/nn"
	"github.com/weft-ml/weft/internal/tensor"
	"github.com/weft-ml/weft/internal/track"
	"github.com/weft-ml/weft/internal/variable"
	"github.com/weft-ml/weft/layout"
)

type backend = *cpu.Backend

func newMesh(t *testing.T) *dtensor.Mesh {
	t.Helper()
	mesh, err := dtensor.NewMesh("training",
		[]dtensor.MeshDim{{Name: "batch", Size: 2}, {Name: "model", Size: 2}},
		[]string{"cpu:0", "cpu:1", "cpu:2", "cpu:3"})
	require.NoError(t, err)
	return mesh
}

func mustLayout(t *testing.T, mesh *dtensor.Mesh, sharding ...string) dtensor.Layout {
	t.Helper()
	l, err := dtensor.NewLayout(mesh, sharding...)
	require.NoError(t, err)
	return l
}

func noLazyLeft(t *testing.T, model any) {
	t.Helper()
	found := track.Flatten(model, func(v any) bool {
		_, ok := v.(*variable.Lazy[backend])
		return ok
	})
	assert.Empty(t, found, "placeholders remained after materialization")
}

func TestMapVariables_Sequential(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)

	lm := layout.NewLayoutMap(mesh)
	kernelLayout := mustLayout(t, mesh, "batch", dtensor.Unsharded)
	require.NoError(t, lm.Set("d1.kernel", kernelLayout))

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 4, 3, nn.WithName("d1"))
	d2 := nn.NewDense(scope, dev.Backend(), 3, 2, nn.WithName("d2"))
	model := nn.NewSequential[backend](d1, d2)
	exit()

	// Weight creation was deferred.
	_, isLazy := d1.Kernel().(*variable.Lazy[backend])
	require.True(t, isLazy)

	require.NoError(t, layout.MapVariables(dev, scope, lm, model))

	// d1.kernel got its registered sharded layout.
	kernel, ok := d1.Kernel().(*variable.Dist[backend])
	require.True(t, ok)
	assert.True(t, kernel.Layout().Equal(kernelLayout))
	assert.Equal(t, tensor.Shape{4, 3}, kernel.Shape())
	// Shards hold 2 of the 4 rows each.
	assert.Equal(t, tensor.Shape{2, 3}, kernel.Value().Shape())

	// Everything without an entry fell back to fully replicated.
	bias, ok := d1.Bias().(*variable.Dist[backend])
	require.True(t, ok)
	assert.True(t, bias.Layout().IsReplicated())
	assert.Equal(t, 1, bias.Layout().Rank())

	k2, ok := d2.Kernel().(*variable.Dist[backend])
	require.True(t, ok)
	assert.True(t, k2.Layout().IsReplicated())

	noLazyLeft(t, model)
}

func TestMapVariables_SweepRewritesCachedAliases(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 4, 3, nn.WithName("d1"))
	model := nn.NewSequential[backend](d1)
	exit()

	require.NoError(t, layout.MapVariables(dev, scope, lm, model))

	// The trainableVars cache holds the same bound variables as the
	// primary kernel/bias slots, not stale placeholders.
	found := track.Flatten(d1, func(v any) bool {
		_, ok := v.(*variable.Dist[backend])
		return ok
	})
	byPath := make(map[string]any, len(found))
	for _, f := range found {
		byPath[f.Path.Key()] = f.Leaf
	}
	assert.Same(t, byPath["kernel"], byPath["trainableVars.0"])
	assert.Same(t, byPath["bias"], byPath["trainableVars.1"])
}

func TestMapVariables_RegexCoversVariableFamily(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)

	lm := layout.NewLayoutMap(mesh)
	shardedKernels := mustLayout(t, mesh, "batch", dtensor.Unsharded)
	require.NoError(t, lm.Set(`d.*kernel`, shardedKernels))

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 4, 4, nn.WithName("d1"))
	d2 := nn.NewDense(scope, dev.Backend(), 4, 4, nn.WithName("d2"))
	model := nn.NewSequential[backend](d1, d2)
	exit()

	require.NoError(t, layout.MapVariables(dev, scope, lm, model))

	for _, d := range []*nn.Dense[backend]{d1, d2} {
		kernel := d.Kernel().(*variable.Dist[backend])
		assert.True(t, kernel.Layout().Equal(shardedKernels), "kernel of %s", d.Name())
		bias := d.Bias().(*variable.Dist[backend])
		assert.True(t, bias.Layout().IsReplicated(), "bias of %s", d.Name())
	}
}

func TestMapVariables_ConcreteWeightsNotRedrawn(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	pretrained, err := tensor.FromSlice([]float32{
		1, 1,
		2, 2,
		3, 3,
		4, 4,
	}, tensor.Shape{4, 2}, dev.Backend())
	require.NoError(t, err)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	emb := nn.NewEmbeddingFromWeight(scope, dev.Backend(), pretrained, nn.WithName("emb"))
	exit()

	require.NoError(t, layout.MapVariables(dev, scope, lm, emb))

	weight, ok := emb.Weight().(*variable.Dist[backend])
	require.True(t, ok)
	for i := 0; i < weight.Dist().NumReplicas(); i++ {
		assert.Equal(t, []float32{1, 1, 2, 2, 3, 3, 4, 4}, weight.Dist().Replica(i).AsFloat32())
	}
}

func TestMapVariables_InitializerRunsOncePerPlaceholder(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	var runs int
	counting := func(shape tensor.Shape, b backend) *tensor.Tensor[float32, backend] {
		runs++
		return tensor.Ones[float32](shape, b)
	}

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	v := variable.New[backend](scope, dev.Backend(), "w", tensor.Shape{2, 2}, counting, true)
	holder := &settableHolder{v: v}
	exit()

	require.NoError(t, layout.MapVariables(dev, scope, lm, holder))
	assert.Equal(t, 1, runs)

	dist, ok := holder.v.(*variable.Dist[backend])
	require.True(t, ok)
	assert.Equal(t, []float32{1, 1, 1, 1}, dist.Value().Data())
}

// settableHolder is a minimal model with one writable slot.
type settableHolder struct {
	v variable.Variable[backend]
}

func (h *settableHolder) Children() []track.Edge {
	return []track.Edge{{Seg: track.Attr("w"), Value: h.v}}
}

func (h *settableHolder) SetChild(seg track.Segment, v any) error {
	if seg != track.Attr("w") {
		return fmt.Errorf("%w: unknown attribute %q", track.ErrUnsupportedLeaf, seg)
	}
	h.v = v.(variable.Variable[backend])
	return nil
}

// cacheOnlyModel references its placeholder exclusively through a
// skip-listed cache attribute, so no primary path ever binds it.
type cacheOnlyModel struct {
	cache []variable.Variable[backend]
}

func (m *cacheOnlyModel) Children() []track.Edge {
	return []track.Edge{{Seg: track.Attr("trainableVars"), Value: varList{items: &m.cache}}}
}

type varList struct {
	items *[]variable.Variable[backend]
}

func (l varList) Children() []track.Edge {
	edges := make([]track.Edge, len(*l.items))
	for i, v := range *l.items {
		edges[i] = track.Edge{Seg: track.Index(i), Value: v}
	}
	return edges
}

func (l varList) SetChild(seg track.Segment, v any) error {
	(*l.items)[seg.Idx()] = v.(variable.Variable[backend])
	return nil
}

func TestMapVariables_ResidualAliasOutsideSkipSet(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	v := variable.New[backend](scope, dev.Backend(), "orphan", tensor.Shape{2}, variable.Zeros[backend](), true)
	exit()

	model := &cacheOnlyModel{cache: []variable.Variable[backend]{v}}

	err := layout.MapVariables(dev, scope, lm, model)
	require.Error(t, err)
	assert.ErrorIs(t, err, layout.ErrInvariantViolation)

	var be *layout.BindError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "trainableVars.0", be.Path)
}

// frozenModel exposes its variable through a read-only sequence.
type frozenModel struct {
	vars []variable.Variable[backend]
}

func (m *frozenModel) Children() []track.Edge {
	return []track.Edge{{Seg: track.Attr("weights"), Value: frozenList{items: m.vars}}}
}

type frozenList struct {
	items []variable.Variable[backend]
}

func (l frozenList) Children() []track.Edge {
	edges := make([]track.Edge, len(l.items))
	for i, v := range l.items {
		edges[i] = track.Edge{Seg: track.Index(i), Value: v}
	}
	return edges
}

func TestMapVariables_UnassignableLeaf(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	v := variable.New[backend](scope, dev.Backend(), "w", tensor.Shape{2}, variable.Zeros[backend](), true)
	exit()

	model := &frozenModel{vars: []variable.Variable[backend]{v}}

	err := layout.MapVariables(dev, scope, lm, model)
	require.Error(t, err)
	assert.ErrorIs(t, err, layout.ErrUnsupportedLeaf)
}

func TestMapVariables_NoEntryAndNoDefaultMesh(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(nil)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 2, 2, nn.WithName("d1"))
	exit()

	err := layout.MapVariables(dev, scope, lm, d1)
	require.Error(t, err)
	assert.ErrorIs(t, err, layout.ErrInvalidLayout)
}

func TestMapVariables_BindsDeferredGeneratorState(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 4, 4, nn.WithName("d1"))
	drop := nn.NewDropout(scope, dev.Backend(), 0.5, nn.WithSeed(21))
	model := nn.NewSequential[backend](d1, drop)
	exit()

	gen := drop.RandomState()
	require.True(t, gen.Built())
	_, isLazy := gen.State().(*variable.Lazy[backend])
	require.True(t, isLazy)

	require.NoError(t, layout.MapVariables(dev, scope, lm, model))

	state, ok := gen.State().(*variable.Dist[backend])
	require.True(t, ok)
	assert.True(t, state.Layout().IsReplicated())
	assert.Equal(t, 1, state.Layout().Rank())
	assert.Equal(t, mesh.NumDevices(), state.Dist().NumReplicas())
	assert.Equal(t, []float32{21, 0}, state.Dist().Local().AsFloat32())
}

func TestMapVariables_BuildsUnbuiltGeneratorOnMesh(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	// Constructed without a scope: the generator is never built during
	// model construction.
	drop := nn.NewDropout(nil, dev.Backend(), 0.5, nn.WithSeed(5))
	require.False(t, drop.RandomState().Built())

	scope := layout.NewScope()
	require.NoError(t, layout.MapVariables(dev, scope, lm, drop))

	gen := drop.RandomState()
	require.True(t, gen.Built())
	state, ok := gen.State().(*variable.Dist[backend])
	require.True(t, ok)
	assert.True(t, state.Layout().IsReplicated())
	assert.Equal(t, []float32{5, 0}, state.Dist().Local().AsFloat32())
}

func TestMapVariables_BuiltGeneratorWithoutState(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	drop := nn.NewDropout(nil, dev.Backend(), 0.5)
	drop.RandomState().Build(nil, dev.Backend())
	drop.RandomState().SetState(nil)

	scope := layout.NewScope()
	err := layout.MapVariables(dev, scope, lm, drop)
	require.Error(t, err)
	assert.ErrorIs(t, err, layout.ErrInvariantViolation)
}

func TestMapVariables_ForwardAfterBinding(t *testing.T) {
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	d1 := nn.NewDense(scope, dev.Backend(), 4, 3, nn.WithName("d1"))
	d2 := nn.NewDense(scope, dev.Backend(), 3, 2, nn.WithName("d2"))
	model := nn.NewSequential[backend](d1, d2)
	exit()

	require.NoError(t, layout.MapVariables(dev, scope, lm, model))

	x, err := tensor.FromSlice(make([]float32, 8), tensor.Shape{2, 4}, dev.Backend())
	require.NoError(t, err)
	out := model.Forward(x)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
}

func TestMapVariables_FailureIsReported(t *testing.T) {
	// A model with both a bindable and an unbindable placeholder must not
	// silently succeed: the error names the failing path.
	nn.ResetNaming()
	mesh := newMesh(t)
	dev := dtensor.New(cpu.New(), mesh)
	lm := layout.NewLayoutMap(mesh)

	scope := layout.NewScope()
	exit := scope.Enter(lm)
	good := variable.New[backend](scope, dev.Backend(), "good", tensor.Shape{2}, variable.Zeros[backend](), true)
	bad := variable.New[backend](scope, dev.Backend(), "bad", tensor.Shape{2}, variable.Zeros[backend](), true)
	exit()

	model := &frozenModel{vars: []variable.Variable[backend]{good, bad}}

	err := layout.MapVariables(dev, scope, lm, model)
	require.Error(t, err)
	var be *layout.BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "weights.0", be.Path)
}
