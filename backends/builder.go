package backends

import (
	"strconv"

	"github.com/gomlx/npreduce/pkg/core/shapes"
)

// Op represents the output of an operation, during the computation graph building time.
//
// It is opaque from the caller's perspective: it is passed as input to the other Builder methods.
type Op any

// Builder defines the set of ops to support building a computation.
//
// Each Builder can choose not to implement some of the standard operations, by returning an error
// (see package notimplemented). This restricts which computations it can run.
type Builder interface {
	// Compile the computation built. This immediately invalidates the Builder and returns an Executable that
	// can now be used to run the computation.
	//
	// It is given the list of outputs.
	Compile(outputs ...Op) (Executable, error)

	// Name of the computation being built.
	Name() string

	// OpShape returns the shape of a computation Op.
	OpShape(op Op) (shapes.Shape, error)

	// Parameter creates an input parameter for the computation.
	// During execution of a compiled computation (returned by Builder.Compile) this value will need to be fed
	// in the same order it is created.
	Parameter(name string, shape shapes.Shape) (Op, error)

	// Constant creates a constant in the graph with the given flat values, and the shape defined by dims.
	//
	// The flat value must be a slice of a supported Go type (that can be converted to a DType).
	// The value is copied into the graph.
	Constant(flat any, dims ...int) (Op, error)

	// StandardOps include all other standard math operations.
	StandardOps

	// CollectiveOps include all collective (cross-replica) operations.
	CollectiveOps
}

// ReduceOpType selects among the basic types of reduction supported, see StandardOps.Reduce.
type ReduceOpType int

const (
	// ReduceOpUndefined is an undefined value.
	ReduceOpUndefined ReduceOpType = iota

	// ReduceOpSum reduces by summing all elements being reduced.
	ReduceOpSum

	// ReduceOpProduct reduces by multiplying all elements being reduced.
	ReduceOpProduct

	// ReduceOpMax reduces by taking the maximum value.
	ReduceOpMax

	// ReduceOpMin reduces by taking the minimum value.
	ReduceOpMin

	// ReduceOpLogicalAnd reduces booleans with a logical "and".
	ReduceOpLogicalAnd

	// ReduceOpLogicalOr reduces booleans with a logical "or".
	ReduceOpLogicalOr
)

var reduceOpTypeNames = []string{"Undefined", "Sum", "Product", "Max", "Min", "LogicalAnd", "LogicalOr"}

// String implements fmt.Stringer.
func (r ReduceOpType) String() string {
	if r < 0 || int(r) >= len(reduceOpTypeNames) {
		return "ReduceOpType(" + strconv.Itoa(int(r)) + ")"
	}
	return reduceOpTypeNames[r]
}

// IsLogical returns whether the reduction only applies to booleans.
func (r ReduceOpType) IsLogical() bool {
	return r == ReduceOpLogicalAnd || r == ReduceOpLogicalOr
}
