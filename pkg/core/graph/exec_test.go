package graph_test

import (
	"testing"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	. "github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/graph/graphtest"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumOfSquares(x *Node) *Node {
	return ReduceAllSum(Square(x))
}

func TestExec(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	exec := MustNewExec(backend, sumOfSquares)
	defer exec.Finalize()
	assert.Contains(t, exec.Name(), "sumOfSquares")

	outputs, err := exec.Exec([]float32{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, float32(14), outputs[0].Value())
	assert.Equal(t, 1, exec.CacheSize())

	// Same shape reuses the graph.
	assert.Equal(t, float32(2), exec.MustExec([]float32{1, -1, 0})[0].Value())
	assert.Equal(t, 1, exec.CacheSize())

	// New shapes and dtypes create new graphs.
	assert.Equal(t, 30.0, exec.MustExec([][]float64{{1, 2}, {3, 4}})[0].Value())
	assert.Equal(t, int32(9), exec.MustExec(int32(3))[0].Value())
	assert.Equal(t, 3, exec.CacheSize())

	// Tensors are accepted as inputs, and are not consumed.
	input := tensors.FromValue([]float32{2, 2})
	assert.Equal(t, float32(8), exec.MustExec(input)[0].Value())
	assert.Equal(t, []float32{2, 2}, input.Value())

	_, err = exec.Exec([]float32{1}, []float32{2})
	require.Error(t, err, "wrong number of arguments")
}

func TestExecMaxCache(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	exec := MustNewExec(backend, sumOfSquares).SetMaxCache(1)
	defer exec.Finalize()
	_, err := exec.Exec([]float32{1})
	require.NoError(t, err)
	_, err = exec.Exec([]float32{1, 2})
	require.ErrorContains(t, err, "maximum cache size")
	_, err = exec.Exec([]float32{3})
	require.NoError(t, err, "cached shapes still work")

	exec.SetMaxCache(-1)
	for size := range 12 {
		_, err = exec.Exec(make([]float32, size+2))
		require.NoError(t, err)
	}
	assert.Equal(t, 13, exec.CacheSize())
}

func TestExecSignatures(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	// No inputs: graph function takes a *Graph.
	exec := MustNewExec(backend, func(g *Graph) *Node {
		return IotaFull(g, shapes.Make(dtypes.Int64, 3))
	})
	assert.Equal(t, []int64{0, 1, 2}, exec.MustExec()[0].Value())
	exec.Finalize()

	// Slice of inputs and multiple outputs.
	exec = MustNewExec(backend, func(inputs []*Node) (*Node, *Node) {
		sum := inputs[0]
		for _, x := range inputs[1:] {
			sum = Add(sum, x)
		}
		return sum, ReduceAllSum(sum)
	})
	outputs := exec.MustExec([]int32{1, 2}, []int32{10, 20}, []int32{100, 200})
	require.Len(t, outputs, 2)
	assert.Equal(t, []int32{111, 222}, outputs[0].Value())
	assert.Equal(t, int32(333), outputs[1].Value())
	exec.Finalize()

	// Returning the same node twice.
	results, err := ExecOnceN(backend, func(x *Node) (*Node, *Node) { return x, x }, []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, results[0].Value())
	assert.Equal(t, []float64{1.5}, results[1].Value())

	_, err = NewExecAny(backend, func(x int) *Node { return nil })
	require.Error(t, err)
	_, err = NewExecAny(backend, "not a function")
	require.Error(t, err)
	_, err = NewExecAny(nil, sumOfSquares)
	require.Error(t, err)
}

func TestExecOnce(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	result, err := ExecOnce(backend, func(x, y *Node) *Node { return Div(x, y) }, []float32{1, 3}, float32(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.5}, result.Value())

	_, err = ExecOnce(backend, func(x *Node) *Node {
		panic(errors.New("graph building failed"))
	}, float32(1))
	require.Error(t, err)

	assert.Panics(t, func() {
		MustExecOnce(backend, func(x *Node) *Node { return ReduceSum(x, 3) }, []float32{1})
	})
}

func TestGraphRun(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	g := NewGraph(backend, "manual")
	defer g.Finalize()
	x := Parameter(g, "x", shapes.Make(dtypes.Float32, 2))
	y := Parameter(g, "y", shapes.Scalar(dtypes.Float32))
	require.Equal(t, 2, g.NumParameters())
	assert.Same(t, y, g.GetParameterByName("y"))
	assert.Same(t, x, g.GetParameterByHandle(x.GetParameterHandle()))
	assert.Equal(t, "x", x.GetParameterName())

	sum := Add(x, y)
	assert.Equal(t, []*Node{x, y}, sum.Inputs())
	g.Compile(sum, Neg(sum))
	assert.True(t, g.IsCompiled())

	outputs := g.Run([]float32{1, 2}, float32(10))
	require.Len(t, outputs, 2)
	assert.Equal(t, []float32{11, 12}, outputs[0].Value())
	assert.Equal(t, []float32{-11, -12}, outputs[1].Value())

	assert.Panics(t, func() { g.Run([]float32{1, 2, 3}, float32(10)) }, "wrong input shape")
	assert.Panics(t, func() { g.Run([]float32{1, 2}) }, "wrong number of inputs")
	assert.Panics(t, func() { Add(x, y) }, "graph no longer building")
}
