package graph

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/support/xslices"
)

// MinConstValueSizeToKeep defines a size below which constant values (see Const, ConstTensor) are kept in the Node
// for printing/debugging purposes.
//
// If set to 0, no value is kept.
var MinConstValueSizeToKeep = 32

// Node represents the result of an operation in the computation graph, and can be used as input to further operations.
//
// Notice some methods offered in this package may be implemented with several instances of simpler operations
// and yield several nodes in the graph, that's normal.
//
// Node.String allows for a pretty-printing of node. To see the full graph with all nodes, use Graph.String.
type Node struct {
	graph *Graph
	id    NodeId // id within graph.
	shape shapes.Shape
	op    backends.Op

	// opType is the backend operation that created the node.
	opType backends.OpType

	// inputNodes are the edges of the computation graph.
	inputNodes []*Node

	// params describes the static parameters of the operation, used for printing.
	params string

	// parameterHandle is set for parameter nodes only.
	parameterHandle ParameterHandle
	parameterName   string

	// constValue is kept for small constants.
	constValue *tensors.Tensor

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Shape of the Node's output. It can be `nil`, for nodes that simply have a side effect.
func (n *Node) Shape() shapes.Shape {
	if n == nil {
		return shapes.Invalid()
	}
	return n.shape
}

// DType returns the DType of the node's shape.
func (n *Node) DType() dtypes.DType {
	return n.Shape().DType
}

// Rank returns the rank of the node's shape.
func (n *Node) Rank() int {
	return n.shape.Rank()
}

// IsScalar returns whether the node's shape is a scalar.
func (n *Node) IsScalar() bool {
	return n.shape.IsScalar()
}

// Id is the unique id of this node within the Graph.
func (n *Node) Id() NodeId {
	return n.id
}

// Type identifies the operation that created the node.
func (n *Node) Type() backends.OpType {
	return n.opType
}

// Inputs are the other nodes that are direct inputs to this node.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// GetParameterHandle returns the parameter handle for this node, if it's a parameter.
func (n *Node) GetParameterHandle() ParameterHandle {
	n.AssertValid()
	if n.opType != backends.OpTypeParameter {
		exceptions.Panicf("node %s is not a Parameter node", n)
	}
	return n.parameterHandle
}

// GetParameterName returns the parameter name for this node, if it's a parameter.
func (n *Node) GetParameterName() string {
	n.AssertValid()
	if n.opType != backends.OpTypeParameter {
		exceptions.Panicf("node %s is not a Parameter node", n)
	}
	return n.parameterName
}

// ConstValue returns the value of a constant node, if it was small enough to be kept (see MinConstValueSizeToKeep).
// It returns nil otherwise.
func (n *Node) ConstValue() *tensors.Tensor {
	return n.constValue
}

// AssertValid panics if `n` is nil, or if its graph is invalid.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	if !n.graph.IsValid() {
		exceptions.Panicf("Node's Graph is invalid (finalized?)")
	}
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by `Graph.SetTraced(true)`.
func (n *Node) Trace() error {
	return n.trace
}

// String implements the `fmt.Stringer` interface.
// Logged nodes are marked with (*).
func (n *Node) String() (str string) {
	if n == nil {
		return "Node(nil)"
	}
	if n.graph == nil || !n.graph.IsValid() {
		return "Node(graph == nil or invalid)"
	}
	var parts []string
	switch n.opType {
	case backends.OpTypeParameter:
		parts = append(parts, fmt.Sprintf("name=%q", n.parameterName))
	case backends.OpTypeConstant:
		if n.constValue != nil {
			parts = append(parts, fmt.Sprintf("value=%v", n.constValue.Value()))
		} else {
			parts = append(parts, humanize.Bytes(uint64(n.shape.Memory())))
		}
	}
	if len(n.inputNodes) > 0 {
		parts = append(parts, strings.Join(xslices.Map(n.inputNodes, func(input *Node) string {
			return fmt.Sprintf("[#%d]", input.Id())
		}), ", "))
	}
	if n.params != "" {
		parts = append(parts, n.params)
	}
	return fmt.Sprintf("%s(%s) -> %s", n.opType, strings.Join(parts, ", "), n.shape)
}
