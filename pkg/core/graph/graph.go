// Package graph implements the deferred-execution layer used by the reductions: computations are first
// built as a graph of symbolic Node values, then compiled by a backend and executed with concrete tensors.
//
// The main elements in the package are:
//
//   - Exec is the driver that manages the lifecycle (Graph creation, compilation, caching, and execution)
//     across different input shapes. This is where most use cases start.
//
//   - Graph is the blueprint for a specific computation with specific input shapes.
//     It's usually created by an Exec object, built by a graph function, and then cached and executed by the Exec.
//
//   - Node represents a symbolic value in the computation: an input parameter, a constant, or the result of
//     an operation (Add, ReduceSum, Sort, etc.). Each node has a fixed shape known at graph building time.
//
// # Error Handling
//
// Graph and Node methods "throw" errors with panic(). This prevents having to manage error returning for every
// operation (Add, Sub, Mul, etc.) and makes the code much more readable.
// Errors carry the stack-trace of where they happened. Exec.Exec and ExecOnce catch these panics and return them
// as errors.
//
// # Broadcasting
//
// Binary operations follow NumPy broadcasting rules: shapes are aligned on the trailing axes, and axes of
// dimension 1 are broadcast to the dimension of the other operand.
package graph

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/support/sets"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Graph with the operations and dependencies needed to run a computation.
type Graph struct {
	backend backends.Backend
	builder backends.Builder

	id   GraphId
	name string

	// nodes include all nodes known to Graph.
	nodes []*Node

	// parameters keeps track of parameter nodes, and a mapping of name to handle.
	parameters            []*Node
	parameterNameToHandle map[string]ParameterHandle

	traced bool

	// scalars maintains a cache of scalar values already created in the current Graph for re-use.
	scalars scalarCache

	// Compiled Graph
	executable backends.Executable
}

// GraphId is globally unique.
type GraphId int

var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// NodeId is a unique NodeId within a Graph
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// ParameterHandle is a key to be used by Graph implementations to refer to its
// internal parameters.
type ParameterHandle int

// InvalidParameterHandle represents an invalid (or non-existent) parameter.
const InvalidParameterHandle = ParameterHandle(-1)

// NewGraph constructs an empty Graph.
//
// After building a computation, they can be compiled (see Graph.Compile), at which point the Graph becomes immutable
// and can only be executed.
//
// If it is finalized (see Graph.Finalize), resources are released immediately (instead of waiting for the GC), and
// the Graph can no longer be used.
func NewGraph(backend backends.Backend, name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()

	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		backend:               backend,
		id:                    graphCount,
		name:                  name,
		parameterNameToHandle: make(map[string]ParameterHandle),
		scalars:               make(scalarCache),
	}
	graphCount += 1
	return g
}

// build sets the Graph into "building" mode by creating the Backend Builder object.
func (g *Graph) build() backends.Builder {
	if !g.IsValid() {
		exceptions.Panicf("Graph is nil or has been finalized already")
	}
	if g.IsCompiled() {
		exceptions.Panicf("Graph already compiled and can't be used for building")
	}
	if g.builder == nil {
		// Lazy construction of builder: this allows one to further configure the Graph object before using it.
		g.builder = g.backend.Builder(g.name)
	}
	return g.builder
}

// Backend this Graph is using.
func (g *Graph) Backend() backends.Backend { return g.backend }

// Name of the computation this Graph defines, set during its construction.
func (g *Graph) Name() string { return g.name }

// GraphId is a globally unique id of the graph. It's a counter that starts with 0.
func (g *Graph) GraphId() GraphId {
	return g.id
}

// Finalize frees the associated data with the compiled graph (if it is compiled) and
// all the nodes.
// The graph is left in an unusable state.
// It is safe to call it more than once. Calls on a finalized Graph are no-ops.
func (g *Graph) Finalize() {
	if g == nil {
		return
	}
	g.builder = nil
	if g.executable != nil {
		g.executable.Finalize()
		g.executable = nil
	}
	g.nodes = nil
	g.parameters = nil
	g.parameterNameToHandle = nil
	g.scalars = nil
	g.backend = nil
}

// IsValid returns whether the Graph is in a valid state: it is valid if it is in a configuring, building,
// or compiled state.
func (g *Graph) IsValid() bool {
	return !(g == nil || g.backend == nil)
}

// CheckValid returns an error if the graph is nil or if it has already been finalized.
func (g *Graph) CheckValid() error {
	if g == nil {
		return errors.Errorf("the Graph is nil")
	}
	if g.backend == nil {
		return errors.Errorf("Graph %q has been finalized already", g.name)
	}
	return nil
}

// AssertValid panics if the graph is nil or if it has already been finalized.
func (g *Graph) AssertValid() {
	if err := g.CheckValid(); err != nil {
		panic(err)
	}
}

// IsCompiled returns whether the Graph has been compiled (immutable).
func (g *Graph) IsCompiled() bool {
	return g.IsValid() && g.executable != nil
}

// AssertBuilding panics if the graph is nil, has been finalized, or has already been compiled and therefore immutable.
// If the Graph was in a configuring state (just after the creation), this triggers it to enter into a "building" state.
func (g *Graph) AssertBuilding() {
	g.AssertValid()
	if g.IsCompiled() {
		exceptions.Panicf("Graph %q has already been compiled, one cannot further build computations with it",
			g.name)
	}
	_ = g.build()
}

// AssertCompiled panics if the graph is not valid or if it is not yet compiled.
func (g *Graph) AssertCompiled() {
	g.AssertValid()
	if !g.IsCompiled() {
		exceptions.Panicf("Graph %q not compiled yet, it can't be used for execution", g.name)
	}
}

// SetTraced defines whether each node creation is traced.
// If true, every node will save a stack-trace of where it was created, which is helpful for debugging.
// See Node.Trace().
func (g *Graph) SetTraced(traced bool) {
	g.AssertBuilding()
	g.traced = traced
}

// registerNode in the graph and returns a new unique id within the Graph.
// If Graph.traced is set, it also sets Node.trace to an error with a stack-trace.
func (g *Graph) registerNode(node *Node) (id NodeId) {
	g.AssertBuilding()
	if node.DType() == dtypes.InvalidDType {
		exceptions.Panicf("trying to add node with invalid DType: %s", node)
	}
	id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	node.id = id
	if g.traced {
		node.trace = errors.New("Stack-trace")
	}
	return
}

// NodeById returns the node for the given id.
func (g *Graph) NodeById(id NodeId) *Node {
	g.AssertValid()
	if id == InvalidNodeId || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// Nodes return a slice of all nodes.
// The slice is owned by Graph and shouldn't be changed.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Compile the Graph into an executable for the backend, with the given outputs.
//
// At least one output must be given.
func (g *Graph) Compile(outputs ...*Node) {
	g.AssertBuilding()
	if len(outputs) == 0 {
		exceptions.Panicf("no outputs selected when Graph.Compile graph %q", g.name)
	}
	for ii, node := range outputs {
		if node == nil {
			exceptions.Panicf("output node %d is nil when compiling graph %q", ii, g.name)
		}
		if node.Graph() != g {
			exceptions.Panicf("output node %d is part of a different graph (name=%q) than the one being "+
				"compiled (name=%q)", ii, node.graph.name, g.name)
		}
	}

	// Create "identities" for duplicate outputs.
	outputs = append([]*Node(nil), outputs...)
	outputsSet := sets.Make[*Node]()
	for ii, node := range outputs {
		if !outputsSet.Add(node) {
			outputs[ii] = Identity(node)
		}
	}

	if klog.V(1).Enabled() {
		start := time.Now()
		defer func() {
			klog.Infof("Graph.Compile time for graph %q: %s", g.Name(), time.Since(start))
		}()
	}
	outputsOps := xslices.Map(outputs, func(node *Node) backends.Op { return node.op })
	var err error
	g.executable, err = g.builder.Compile(outputsOps...)
	if err != nil {
		panic(errors.WithMessagef(err, "Graph %q failed to compile for the backend", g.name))
	}
	g.builder = nil
}

// Run the compiled Graph with the inputs given in order -- same order as the parameters were created.
//
// The values for the inputs can be *tensors.Tensor or any Go value (scalars and multidimensional slices)
// accepted by tensors.FromAnyValue.
//
// This is a very "bare-bones" way of running the Graph. Typically, one would use the Exec object instead (which
// dynamically generates a new Graph for inputs of different shapes when needed).
func (g *Graph) Run(inputs ...any) (outputs []*tensors.Tensor) {
	g.AssertCompiled()
	numParams := g.NumParameters()
	if len(inputs) != numParams {
		exceptions.Panicf("graph %q takes %d parameters, but %d were given to Graph.Run()",
			g.name, numParams, len(inputs))
	}
	buffers := make([]backends.Buffer, numParams)
	donate := make([]bool, numParams)
	for ii, input := range inputs {
		buffers[ii], donate[ii] = anyToBuffer(g.backend, input)
		if shape := g.parameters[ii].Shape(); !must1(g.backend.BufferShape(buffers[ii])).Equal(shape) {
			exceptions.Panicf("graph %q parameter #%d (%q) has shape %s, but input has shape %s",
				g.name, ii, g.parameters[ii].GetParameterName(), shape, must1(g.backend.BufferShape(buffers[ii])))
		}
	}
	return g.RunWithBuffers(buffers, donate)
}

// RunWithBuffers executes the graph using as inputs the backend buffers.
//
// The donate slice indicates which buffers can be donated to the execution: they are finalized after
// the execution is finished and shouldn't be used by the caller anymore.
//
// The output buffers are transferred to tensors and then finalized.
func (g *Graph) RunWithBuffers(inputs []backends.Buffer, donate []bool) (outputs []*tensors.Tensor) {
	g.AssertCompiled()
	numParams := g.NumParameters()
	if len(inputs) != numParams || len(donate) != numParams {
		exceptions.Panicf("graph %q takes %d parameters, but %d inputs and %d donate flags were given to RunWithBuffers()",
			g.name, numParams, len(inputs), len(donate))
	}
	var start time.Time
	if klog.V(2).Enabled() {
		start = time.Now()
	}
	results, err := g.executable.Execute(inputs, donate)
	if err != nil {
		panic(errors.WithMessagef(err, "Graph %q failed to execute", g.name))
	}
	if klog.V(2).Enabled() {
		klog.Infof("Graph.RunWithBuffers(%q): %s elapsed", g.name, time.Since(start))
	}
	return xslices.Map(results, func(buf backends.Buffer) *tensors.Tensor {
		return must1(bufferToTensor(g.backend, buf))
	})
}

func must1[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

// anyToBuffer converts a tensor or a Go value to a backend buffer, and returns whether the buffer can be donated.
// Only buffers created here from Go values are donated; tensors are never donated.
func anyToBuffer(backend backends.Backend, value any) (backends.Buffer, bool) {
	t, isTensor := value.(*tensors.Tensor)
	if !isTensor {
		t = tensors.FromAnyValue(value)
	}
	buf, err := backend.BufferFromFlatData(t.Flat(), t.Shape())
	if err != nil {
		panic(errors.WithMessagef(err, "failed to transfer %s to backend %q", t.Shape(), backend.Name()))
	}
	return buf, !isTensor
}

// bufferToTensor transfers the buffer contents to a new tensor, and finalizes the buffer.
func bufferToTensor(backend backends.Backend, buf backends.Buffer) (*tensors.Tensor, error) {
	shape, err := backend.BufferShape(buf)
	if err != nil {
		return nil, err
	}
	t := tensors.FromShape(shape)
	if err = backend.BufferToFlatData(buf, t.Flat()); err != nil {
		return nil, err
	}
	if err = backend.BufferFinalize(buf); err != nil {
		return nil, err
	}
	return t, nil
}

// NumParameters returns the number of parameters created for this graph.
func (g *Graph) NumParameters() int {
	g.AssertValid()
	return len(g.parameters)
}

// GetParameterByHandle returns the ii-th parameter, in order of creation, registered for this graph.
func (g *Graph) GetParameterByHandle(handle ParameterHandle) *Node {
	g.AssertValid()
	return g.parameters[handle]
}

// GetParameterByName returns the parameter registered with the given name. Returns nil if the parameter
// with the given name hasn't been registered (see Parameter method).
func (g *Graph) GetParameterByName(name string) (node *Node) {
	g.AssertValid()
	handle, ok := g.parameterNameToHandle[name]
	if !ok {
		return
	}
	return g.parameters[handle]
}

// String converts the Graph to a multiline string with a description of the full graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)!?"
	}
	if g.backend == nil {
		return "Invalid Graph (already finalized)"
	}
	var compiled string
	if g.executable != nil {
		compiled = " (*)"
	}
	parts := []string{
		fmt.Sprintf("Graph %q%s: %d nodes, %d parameters", g.name, compiled, len(g.nodes), g.NumParameters()),
	}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("\t#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}

// scalarCache provides a cache of scalar values -- the key is the value converted to the dtype's Go type --
// to its pre-created *Node. It helps avoid creating duplicate nodes for common values.
type scalarCache map[dtypes.DType]map[any]*Node
