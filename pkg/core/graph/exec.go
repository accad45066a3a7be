// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ExecGraphFn is a type parameter for accepted function types for NewExec constructor.
type ExecGraphFn interface {
	ExecGraphFnOneOutput |
		func(*Graph) (*Node, *Node) |
		func(*Node) (*Node, *Node) |
		func(*Node, *Node) (*Node, *Node) |
		func(*Node, *Node, *Node) (*Node, *Node) |
		func(*Node, *Node, *Node, *Node) (*Node, *Node) |
		func([]*Node) (*Node, *Node) |

		// With 3 outputs
		func(*Graph) (*Node, *Node, *Node) |
		func(*Node) (*Node, *Node, *Node) |
		func(*Node, *Node) (*Node, *Node, *Node) |
		func(*Node, *Node, *Node) (*Node, *Node, *Node) |
		func([]*Node) (*Node, *Node, *Node) |

		// With slice of nodes as output.
		func(*Graph) []*Node |
		func(*Node) []*Node |
		func(*Node, *Node) []*Node |
		func(*Node, *Node, *Node) []*Node |
		func([]*Node) []*Node
}

// ExecGraphFnOneOutput are the graph functions that return only one output. See ExecOnce.
type ExecGraphFnOneOutput interface {
	func(*Graph) *Node |
		func(*Node) *Node |
		func(*Node, *Node) *Node |
		func(*Node, *Node, *Node) *Node |
		func(*Node, *Node, *Node, *Node) *Node |
		func(*Node, *Node, *Node, *Node, *Node) *Node |
		func(*Node, *Node, *Node, *Node, *Node, *Node) *Node |
		func([]*Node) *Node
}

// Exec creates and executes computation graphs as needed based on the inputs shapes.
//
// It simplifies the process of executing a graph building function with real values.
// For example, assume you wrote:
//
//	func LengthGraph(x *Node) *Node {
//	  return Sqrt(ReduceAllSum(Mul(x, x)))
//	}
//
// To use it with real values, one needs to build the graph to a specific shape of x, compile it
// and then execute it. With Exec one can do:
//
//	var Length = MustNewExec(backend, LengthGraph)
//	x0 := []float32{4}
//	fmt.Printf("Length(%v) = %v\n", x0, Length.MustExec(x0)[0].Value())
//	x1 := []float64{1, 2, 3}
//	fmt.Printf("Length(%v) = %v\n", x1, Length.MustExec(x1)[0].Value())
//
// Both calls create different graphs (for different shapes of the input), but they are cached,
// and if the same shapes are used again, the cached compiled graph is reused.
//
// If there are no inputs, graphFn must take a *Graph as its only parameter.
//
// Exec is safe for concurrent use.
type Exec struct {
	backend backends.Backend

	graphFn                     any
	numInputs, numOutputs       int
	inputAsSlice, outputAsSlice bool
	inputIsGraph                bool
	name                        string

	// maxCacheSize: if more than these different graph instantiations are
	// created, Exec starts returning errors.
	maxCacheSize int

	// Protects cache structure.
	cacheMu sync.Mutex
	cache   []*execCacheEntry
}

// execCacheEntry: no hashing, just a simple list. This is faster for small tables.
type execCacheEntry struct {
	argsShapes []shapes.Shape
	graph      *Graph
}

// DefaultExecMaxCacheSize is the default number of different input shapes an Exec caches compiled graphs for.
// See Exec.SetMaxCache.
const DefaultExecMaxCacheSize = 10

// NewExecAny constructs an Exec object that uses the given graphFn to build
// computation graphs. graphFn takes only *Node parameters as input and
// returns one or more *Node. Except if there are no inputs, in which case graphFn
// needs to take a *Graph as the first parameter.
//
// If any input or output parameter of graphFn is not a *Node (or *Graph if there are no inputs),
// or if there are no inputs or outputs, it returns an error.
func NewExecAny(backend backends.Backend, graphFn any) (*Exec, error) {
	if backend == nil {
		return nil, errors.New("NewExec requires a non-nil backend")
	}
	graphFnT := reflect.TypeOf(graphFn)
	if graphFnT == nil || graphFnT.Kind() != reflect.Func {
		return nil, errors.Errorf("graphFn must be a function, got %T", graphFn)
	}
	funcName := runtime.FuncForPC(reflect.ValueOf(graphFn).Pointer()).Name()
	if idx := strings.LastIndex(funcName, "/"); idx >= 0 {
		funcName = funcName[idx+1:]
	}
	exec := &Exec{
		backend:      backend,
		name:         fmt.Sprintf("Exec:%s", funcName),
		graphFn:      graphFn,
		numInputs:    graphFnT.NumIn(),
		numOutputs:   graphFnT.NumOut(),
		maxCacheSize: DefaultExecMaxCacheSize,
	}

	nodeType := reflect.TypeOf((*Node)(nil))
	graphType := reflect.TypeOf((*Graph)(nil))
	if graphFnT.NumIn() < 1 || graphFnT.NumOut() < 1 {
		return nil, errors.Errorf("not enough input (%d)/output (%d) parameters, both need to be > 0",
			graphFnT.NumIn(), graphFnT.NumOut())
	}
	for ii := range graphFnT.NumIn() {
		inT := graphFnT.In(ii)
		if inT.Kind() == reflect.Slice && inT.Elem() == nodeType {
			if graphFnT.NumIn() != 1 {
				return nil, errors.Errorf("[]*Node parameters are only accepted as input if they are the only input, got function type %s instead", graphFnT)
			}
			exec.inputAsSlice = true
			break
		}
		if inT == graphType {
			if graphFnT.NumIn() != 1 {
				return nil, errors.Errorf("*Graph parameter only accepted as input if it is the only input, got function type %s instead", graphFnT)
			}
			exec.inputIsGraph = true
			exec.numInputs = 0
			break
		}
		if inT != nodeType {
			return nil, errors.Errorf("input parameter %d is not of type *Node or []*Node", ii)
		}
	}
	for ii := range graphFnT.NumOut() {
		outT := graphFnT.Out(ii)
		if outT.Kind() == reflect.Slice && outT.Elem() == nodeType {
			if graphFnT.NumOut() != 1 {
				return nil, errors.Errorf("[]*Node parameters are only accepted as output if they are the only output, got function type %s instead", graphFnT)
			}
			exec.outputAsSlice = true
			break
		}
		if outT != nodeType {
			return nil, errors.Errorf("output parameter %d is not of type *Node", ii)
		}
	}
	return exec, nil
}

// NewExec constructs an Exec object that uses the given graphFn to build computation graphs.
//
// graphFn should take *Node as input and return a *Node -- except if there are no (Node) inputs,
// in which case it should take a single *Graph input.
//
// It's a wrapper for NewExecAny, but uses generics to type check that graphFn is valid.
func NewExec[F ExecGraphFn](backend backends.Backend, graphFn F) (*Exec, error) {
	return NewExecAny(backend, graphFn)
}

// MustNewExec is like NewExec, but panics on error.
func MustNewExec[F ExecGraphFn](backend backends.Backend, graphFn F) *Exec {
	return mustNoError(NewExecAny(backend, graphFn))
}

// Name returns the Exec name, a string used as prefix for Graph construction.
func (e *Exec) Name() string {
	return e.name
}

// SetMaxCache sets the maximum size of the cache.
// Set it to -1 to have unlimited cache size.
// It returns a reference to itself so calls can be cascaded.
func (e *Exec) SetMaxCache(maxCacheSize int) *Exec {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.maxCacheSize = maxCacheSize
	return e
}

// CacheSize returns the number of graphs currently cached.
func (e *Exec) CacheSize() int {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return len(e.cache)
}

// Exec parses the arguments into tensors (if they are not yet) and executes
// the graph corresponding to the shapes of the arguments. If a graph does
// not yet exist, one is created, compiled and cached for the shapes.
//
// It returns the outputs in a slice, even if there is only one output.
// Errors (including the panics raised while building the graph) are returned.
func (e *Exec) Exec(args ...any) (outputs []*tensors.Tensor, err error) {
	err = exceptions.TryCatch[error](func() { outputs, _ = e.MustExecWithGraph(args...) })
	return
}

// MustExec is like Exec, but panics on error.
func (e *Exec) MustExec(args ...any) []*tensors.Tensor {
	outputs, _ := e.MustExecWithGraph(args...)
	return outputs
}

// MustExecWithGraph is similar to MustExec, but it also returns the computation graph used
// in the call. Since Exec creates different computation graphs for different set of
// parameters, this can help disambiguate in case the user needs to use the Graph for
// something else.
func (e *Exec) MustExecWithGraph(args ...any) ([]*tensors.Tensor, *Graph) {
	if !e.inputAsSlice && len(args) != e.numInputs {
		exceptions.Panicf("# of arguments to call (%d) don't match # arguments to graph function (%d) for %q",
			len(args), e.numInputs, e.Name())
	}

	// Convert args to tensors.
	argsTensors := make([]any, len(args))
	argsShapes := make([]shapes.Shape, len(args))
	for ii, arg := range args {
		if _, isNode := arg.(*Node); isNode {
			exceptions.Panicf("argument #%d to %q is a *Node: Exec takes concrete values (tensors or Go values)",
				ii, e.Name())
		}
		t := tensors.FromAnyValue(arg)
		argsTensors[ii] = t
		argsShapes[ii] = t.Shape()
	}

	entry := e.findOrCreateCacheEntry(argsShapes)
	return entry.graph.Run(argsTensors...), entry.graph
}

// findOrCreateCacheEntry returns the graph for the given arguments shapes, creating and compiling one if needed.
func (e *Exec) findOrCreateCacheEntry(argsShapes []shapes.Shape) *execCacheEntry {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

LoopCache:
	for _, entry := range e.cache {
		if len(argsShapes) != len(entry.argsShapes) {
			continue
		}
		for ii, shape := range argsShapes {
			if !shape.Equal(entry.argsShapes[ii]) {
				continue LoopCache
			}
		}
		return entry
	}

	if e.maxCacheSize >= 0 && len(e.cache) >= e.maxCacheSize {
		exceptions.Panicf(
			"maximum cache size of %d reached for %q, cannot create another graph -- "+
				"a new computation graph needs to be created+compiled for each different shape of "+
				"the input, consider using padding, or if this is not a concern change "+
				"the cache size with exec.SetMaxCache()", e.maxCacheSize, e.Name())
	}
	entry := e.createGraph(argsShapes)
	e.cache = append(e.cache, entry)
	return entry
}

// createGraph builds and compiles the graph for the arguments with the given shapes.
// If the graph function panics, the partially built graph is finalized and the panic is propagated.
func (e *Exec) createGraph(argsShapes []shapes.Shape) *execCacheEntry {
	graphName := fmt.Sprintf("%s#%s", e.name, uuid.NewString())
	klog.V(1).Infof("Exec %q: compiling new graph %q for shapes %v", e.name, graphName, argsShapes)
	g := NewGraph(e.backend, graphName)
	built := false
	defer func() {
		if !built {
			g.Finalize()
		}
	}()

	var argsV []reflect.Value
	var args []*Node
	if e.inputIsGraph {
		argsV = []reflect.Value{reflect.ValueOf(g)}
	}
	for ii, shape := range argsShapes {
		arg := Parameter(g, fmt.Sprintf("arg#%d", ii), shape)
		if e.inputAsSlice {
			args = append(args, arg)
		} else {
			argsV = append(argsV, reflect.ValueOf(arg))
		}
	}
	if e.inputAsSlice {
		// If input is a slice of *Node, take argsV to be one parameter, the value of the slice.
		argsV = []reflect.Value{reflect.ValueOf(args)}
	}
	g.AssertBuilding()

	outputsV := reflect.ValueOf(e.graphFn).Call(argsV)
	var outputs []*Node
	if e.outputAsSlice {
		outputs = outputsV[0].Interface().([]*Node)
	} else {
		outputs = make([]*Node, 0, len(outputsV))
		for _, outV := range outputsV {
			outputs = append(outputs, outV.Interface().(*Node))
		}
	}
	g.Compile(outputs...)
	built = true
	return &execCacheEntry{argsShapes: argsShapes, graph: g}
}

// Finalize clears the cache, finalizing the graphs. The Exec object shouldn't be
// used after that.
func (e *Exec) Finalize() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	for _, entry := range e.cache {
		entry.graph.Finalize()
		entry.graph = nil
	}
	e.cache = e.cache[:0]
}

// ExecOnce builds the graph and executes it with the given arguments and returns the one output.
//
// It's short for a call to NewExec, Exec.Exec and Exec.Finalize for functions that return only one output.
func ExecOnce[F ExecGraphFnOneOutput](backend backends.Backend, graphFn F, args ...any) (*tensors.Tensor, error) {
	results, err := execOnce(backend, graphFn, args)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ExecOnceN builds the graph and executes it with the given arguments and returns the various outputs.
//
// See ExecOnce for a more convenient version if you have only one output.
func ExecOnceN[F ExecGraphFn](backend backends.Backend, graphFn F, args ...any) ([]*tensors.Tensor, error) {
	return execOnce(backend, graphFn, args)
}

func execOnce(backend backends.Backend, graphFn any, args []any) ([]*tensors.Tensor, error) {
	e, err := NewExecAny(backend, graphFn)
	if err != nil {
		return nil, err
	}
	defer e.Finalize()
	return e.Exec(args...)
}

// MustExecOnce is like ExecOnce, but panics on error.
func MustExecOnce[F ExecGraphFnOneOutput](backend backends.Backend, graphFn F, args ...any) *tensors.Tensor {
	return mustNoError(ExecOnce(backend, graphFn, args...))
}
