package simplego

import (
	"sync"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/support/xsync"
	"github.com/pkg/errors"
)

// Executable holds a frozen Builder. It assumes the graph in Builder is valid and has been properly
// checked that all the shapes and data types are valid.
//
// If any inconsistencies are found, please fix in the Builder, so Executable can be written without the need
// of any duplicate checks.
type Executable struct {
	backend *Backend

	// builder must have Builder.compiled set to true, so it is no longer active.
	builder *Builder

	// numNodesToProcess is the max(outputs)+1: nodes above that are never needed.
	numNodesToProcess int

	// numUses is the number of times each Node is used during the calculation.
	// It has the length of numNodesToProcess.
	numUses []int

	// executionBuffersPool allow for re-use of executionBuffers.
	executionBuffersPool sync.Pool

	// dependents maps each node to the list of nodes that depend on it: only nodes used
	// by this executable are counted.
	dependents [][]int
}

// Compile time check.
var _ backends.Executable = (*Executable)(nil)

// executionBuffers holds the intermediate results during the execution of the graph.
// One is created per execution of Executable.
type executionBuffers struct {
	// results hold the calculated computations at each step.
	results []*Buffer

	// numUsed hold the number of times each node has been used already. Once they match numUses, the results buffer can
	// be released or re-used.
	numUsed []int

	// owned indicates whether the corresponding buffer in results is owned by the executor:
	// either a temporary buffer or one donated by the caller.
	owned []bool

	// remainingDeps is the number of remaining dependencies for each node.
	remainingDeps []int

	opsExecutionType opsExecutionType

	// mu protects numUsed, results and remainingDeps during parallel execution.
	mu sync.Mutex
}

// nodeExecutor for the given operation type.
//
// It is given the buffers for its inputs, and whether it owns them (in which case it may reuse them for
// the output). It returns the output buffer, with node.shape.
type nodeExecutor func(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error)

// nodeExecutors should be populated during initialization (`init` functions) for the ops implemented.
// For the nodes not implemented, leave it as nil, and it will return an error.
var nodeExecutors [backends.OpTypeLast]nodeExecutor

type opsExecutionType int

const (
	opsExecutionDynamic opsExecutionType = iota
	opsExecutionParallel
	opsExecutionSequential
)

// newExecutable creates an Executable ready to run the graph built with builder.
func newExecutable(builder *Builder) *Executable {
	var numNodesToProcess int
	for _, output := range builder.outputs {
		numNodesToProcess = max(numNodesToProcess, output.builderIdx+1)
	}

	e := &Executable{
		backend:           builder.backend,
		builder:           builder,
		numNodesToProcess: numNodesToProcess,
		numUses:           make([]int, numNodesToProcess),
		executionBuffersPool: sync.Pool{
			New: func() any {
				return &executionBuffers{
					results:       make([]*Buffer, numNodesToProcess),
					numUsed:       make([]int, numNodesToProcess),
					owned:         make([]bool, numNodesToProcess),
					remainingDeps: make([]int, numNodesToProcess),
				}
			},
		},
		dependents: make([][]int, numNodesToProcess),
	}

	// Count uses for each node starting from outputs.
	for _, output := range builder.outputs {
		e.countNodeUsesAndDependents(output)
	}
	return e
}

// countNodeUsesAndDependents recursively counts how many times a node is used.
func (e *Executable) countNodeUsesAndDependents(node *Node) {
	thisNodeIdx := node.builderIdx
	e.numUses[thisNodeIdx]++
	if e.numUses[thisNodeIdx] == 1 {
		// On the first visit, recursively, traverse inputs of the node.
		for _, input := range node.inputs {
			e.dependents[input.builderIdx] = append(e.dependents[input.builderIdx], thisNodeIdx)
			e.countNodeUsesAndDependents(input)
		}
	}
}

// Finalize immediately frees resources associated with the executable.
func (e *Executable) Finalize() {
	if e.builder != nil {
		e.builder.Finalize()
	}
}

// Inputs returns the list of parameters names and shapes, in order created by the Builder.Parameter calls.
func (e *Executable) Inputs() (names []string, inputShapes []shapes.Shape) {
	numInputs := len(e.builder.inputs)
	if numInputs == 0 {
		return
	}
	names = make([]string, numInputs)
	inputShapes = make([]shapes.Shape, numInputs)
	for ii, node := range e.builder.inputs {
		names[ii] = node.data.(*nodeParameter).name
		inputShapes[ii] = node.shape
	}
	return
}

// Outputs returns the output shapes of the computation, in order given to the Builder.Compile call.
func (e *Executable) Outputs() (outputShapes []shapes.Shape) {
	outputShapes = make([]shapes.Shape, len(e.builder.outputs))
	for ii, node := range e.builder.outputs {
		outputShapes[ii] = node.shape
	}
	return outputShapes
}

// Execute the executable.
// The number and shapes of the inputs must match those returned by Inputs.
//
// The inputs marked in `donate` will become invalid after use.
// If donate is nil, it is assumed to be false for all buffers, and no buffer is donated.
func (e *Executable) Execute(inputs []backends.Buffer, donate []bool) ([]backends.Buffer, error) {
	if e.builder == nil || e.builder.nodes == nil {
		return nil, errors.New("Execute: executable has already been finalized")
	}
	e.backend.numLiveExecutions.Add(1)
	defer e.backend.numLiveExecutions.Add(-1)

	if len(inputs) != len(e.builder.inputs) {
		return nil, errors.Errorf("Execute: expected %d inputs, got %d", len(e.builder.inputs), len(inputs))
	}
	if len(donate) == 0 {
		donate = make([]bool, len(inputs))
	}

	// Check input shapes
	for ii, input := range inputs {
		inputBuffer, ok := input.(*Buffer)
		if !ok {
			return nil, errors.Errorf("Execute: input buffer #%d is not from SimpleGo backend", ii)
		}
		if !inputBuffer.valid {
			return nil, errors.Errorf(
				"Execute: input buffer (%p) #%d is not valid, likely it is being used after being finalized",
				inputBuffer, ii)
		}
		nodeInput := e.builder.inputs[ii]
		if !inputBuffer.shape.Equal(nodeInput.shape) {
			paramName := nodeInput.data.(*nodeParameter).name
			return nil, errors.Errorf("Execute: parameter %q (input #%d) for %q: expected shape %s, got %s",
				paramName, ii, e.builder.name, nodeInput.shape, inputBuffer.shape)
		}
	}

	execBuf := e.executionBuffersPool.Get().(*executionBuffers)
	for ii := range e.numNodesToProcess {
		execBuf.numUsed[ii] = 0
		execBuf.owned[ii] = false
		execBuf.results[ii] = nil
		execBuf.remainingDeps[ii] = 0
	}

	// Initialize "parameters" results with input buffers.
	for ii, input := range inputs {
		inputNodeIdx := e.builder.inputs[ii].builderIdx
		if inputNodeIdx >= e.numNodesToProcess {
			continue
		}
		execBuf.results[inputNodeIdx] = input.(*Buffer)
		execBuf.owned[inputNodeIdx] = donate[ii]
	}

	// Ops are executed in parallel only if this is the only computation running.
	executionMode := e.backend.opsExecutionType
	if executionMode == opsExecutionDynamic {
		if e.backend.numLiveExecutions.Load() == 1 && e.backend.workers.IsEnabled() {
			executionMode = opsExecutionParallel
		} else {
			executionMode = opsExecutionSequential
		}
	}
	execBuf.opsExecutionType = executionMode

	var err error
	if executionMode == opsExecutionSequential {
		err = e.executeSequentially(execBuf)
	} else {
		err = e.executeParallel(execBuf)
	}
	if err != nil {
		e.releaseOwned(execBuf)
		return nil, err
	}

	// Return outputs, copying them if not owned by the executor.
	outputs := make([]backends.Buffer, len(e.builder.outputs))
	for ii, outputNode := range e.builder.outputs {
		outNodeIdx := outputNode.builderIdx
		outBuf := execBuf.results[outNodeIdx]
		if outBuf == nil {
			e.releaseOwned(execBuf)
			return nil, errors.Errorf("Execute: output #%d (%s, nodeIdx=%d) is not calculated yet (!?) -- "+
				"this is a bug, it should never have happened", ii, outputNode.opType, outNodeIdx)
		}
		if execBuf.owned[outNodeIdx] {
			// Make sure we don't return the same buffer twice, or free it below.
			execBuf.results[outNodeIdx] = nil
		} else {
			outBuf, err = e.backend.cloneBuffer(outBuf)
			if err != nil {
				e.releaseOwned(execBuf)
				return nil, err
			}
		}
		outputs[ii] = outBuf
	}
	e.releaseOwned(execBuf)
	return outputs, nil
}

// releaseOwned frees intermediate buffers that haven't been freed yet, and returns execBuf to the pool.
func (e *Executable) releaseOwned(execBuf *executionBuffers) {
	for nodeIdx, buf := range execBuf.results {
		if buf != nil && execBuf.owned[nodeIdx] {
			e.backend.putBuffer(buf)
		}
		execBuf.results[nodeIdx] = nil
	}
	e.executionBuffersPool.Put(execBuf)
}

// executeSequentially executes operations one after another. It uses execBuf to store the results.
func (e *Executable) executeSequentially(execBuf *executionBuffers) error {
	// Nodes are already sorted by their dependencies, so they are always ready to execute.
	for nodeIdx := range e.numNodesToProcess {
		if execBuf.results[nodeIdx] != nil || e.numUses[nodeIdx] == 0 {
			// Parameters are pre-filled, and nodes not used by any output are skipped.
			continue
		}
		if err := e.executeNode(e.builder.nodes[nodeIdx], execBuf); err != nil {
			return err
		}
	}
	return nil
}

// executeNode executes the given node using execBuf as the context where to read pre-generated
// results of other ops, and where to store the result, for the current execution.
func (e *Executable) executeNode(node *Node, execBuf *executionBuffers) error {
	nodeIdx := node.builderIdx
	parallel := execBuf.opsExecutionType == opsExecutionParallel

	// Constants are not owned by the execBuf.
	if node.opType == backends.OpTypeConstant {
		if parallel {
			execBuf.mu.Lock()
			defer execBuf.mu.Unlock()
		}
		execBuf.owned[nodeIdx] = false
		execBuf.results[nodeIdx] = node.data.(*Buffer)
		return nil
	}
	if node.opType == backends.OpTypeParameter {
		return errors.Errorf("Execute: parameter node #%d has no value (!?)", nodeIdx)
	}

	inputBuffers := make([]*Buffer, len(node.inputs))
	inputsOwned := make([]bool, len(node.inputs))
	if parallel {
		execBuf.mu.Lock()
	}
	for ii, input := range node.inputs {
		inputNodeIdx := input.builderIdx
		inputBuffers[ii] = execBuf.results[inputNodeIdx]
		if inputBuffers[ii] == nil {
			if parallel {
				execBuf.mu.Unlock()
			}
			return errors.Errorf("Execute: input #%d of node #%d is not calculated yet (!?) -- "+
				"this is a bug, it should never have happened", ii, nodeIdx)
		}
		// Only "own" the input if this is the last use of it.
		inputsOwned[ii] = execBuf.owned[inputNodeIdx] && e.numUses[inputNodeIdx]-execBuf.numUsed[inputNodeIdx] == 1
	}
	if parallel {
		execBuf.mu.Unlock()
	}

	executor := nodeExecutors[node.opType]
	if executor == nil {
		return errors.Errorf("Execute: node executor for op type %s not implemented!?", node.opType)
	}
	output, err := executor(e.backend, node, inputBuffers, inputsOwned)
	if err != nil {
		return errors.WithMessagef(err, "while executing %q", node.opType)
	}

	if parallel {
		execBuf.mu.Lock()
		defer execBuf.mu.Unlock()
	}
	execBuf.results[nodeIdx] = output
	execBuf.owned[nodeIdx] = true
	for ii, inputNode := range node.inputs {
		inputNodeIdx := inputNode.builderIdx
		execBuf.numUsed[inputNodeIdx]++
		if execBuf.numUsed[inputNodeIdx] == e.numUses[inputNodeIdx] && execBuf.owned[inputNodeIdx] &&
			execBuf.results[inputNodeIdx] != nil {
			// Release immediately input result, unless it was reused as the output.
			if inputBuffers[ii] != output {
				e.backend.putBuffer(inputBuffers[ii])
			}
			execBuf.results[inputNodeIdx] = nil
		}
	}
	return nil
}

// executeParallel executes ops as soon as their dependencies are ready, using the backend workers.
func (e *Executable) executeParallel(execBuf *executionBuffers) error {
	var (
		execMu    sync.Mutex // Protects completed and firstErr.
		completed int
		firstErr  error
	)
	// Each node is enqueued at most once, so the channel never blocks.
	readyToExecute := make(chan int, e.numNodesToProcess)
	stopExecutionFn := sync.OnceFunc(func() { close(readyToExecute) })
	inFlight := xsync.NewDynamicWaitGroup()

	expected := 0
	for nodeIdx := range e.numNodesToProcess {
		if e.numUses[nodeIdx] == 0 {
			continue
		}
		expected++
		execBuf.remainingDeps[nodeIdx] = len(e.builder.nodes[nodeIdx].inputs)
		if execBuf.remainingDeps[nodeIdx] == 0 {
			readyToExecute <- nodeIdx
		}
	}
	if expected == 0 {
		return nil
	}

	for nodeIdx := range readyToExecute {
		inFlight.Add(1)
		e.backend.workers.WaitToStart(func() {
			defer inFlight.Done()
			if execBuf.results[nodeIdx] == nil {
				if err := e.executeNode(e.builder.nodes[nodeIdx], execBuf); err != nil {
					execMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					execMu.Unlock()
					stopExecutionFn()
					return
				}
			}

			execMu.Lock()
			defer execMu.Unlock()
			if firstErr != nil {
				return
			}
			completed++
			if completed == expected {
				stopExecutionFn()
				return
			}
			execBuf.mu.Lock()
			defer execBuf.mu.Unlock()
			for _, depIdx := range e.dependents[nodeIdx] {
				execBuf.remainingDeps[depIdx]--
				if execBuf.remainingDeps[depIdx] == 0 {
					readyToExecute <- depIdx
				}
			}
		})
	}
	inFlight.Wait()
	return firstErr
}
