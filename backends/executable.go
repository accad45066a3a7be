package backends

import "github.com/gomlx/npreduce/pkg/core/shapes"

// Executable is the API for compiled programs ready to execute.
type Executable interface {
	// Finalize immediately frees resources associated to the executable.
	Finalize()

	// Inputs returns the list of parameters names and shapes, in order created by the Builder.Parameter calls.
	Inputs() (names []string, inputShapes []shapes.Shape)

	// Outputs returns the list of the shapes of the outputs of the computation, in order given to the
	// Builder.Compile call.
	Outputs() (outputShapes []shapes.Shape)

	// Execute the executable. The number and shapes of the inputs must match those returned by Inputs.
	//
	// donate marks the inputs whose buffers can be reused (and invalidated) by the execution. It can be nil.
	Execute(inputs []Buffer, donate []bool) ([]Buffer, error)
}
