// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Eval builds the computation fn for the shapes of args, executes it once on backend and returns its result.
// Arguments can be tensors or Go values (scalars and multidimensional slices).
//
// Validation errors of the reductions built in fn are returned as errors.
//
// Example:
//
//	sum, err := numpy.Eval(backend, func(x *graph.Node) *graph.Node {
//		return numpy.Sum(x).Axes(1).Done()
//	}, [][]float32{{1, 3, 4, 2}, {5, 2, 6, 3}})
func Eval[F graph.ExecGraphFnOneOutput](backend backends.Backend, fn F, args ...any) (*tensors.Tensor, error) {
	result, err := graph.ExecOnce(backend, fn, args...)
	if err != nil {
		return nil, errors.WithMessage(err, "numpy.Eval")
	}
	return result, nil
}

// MustEval is like Eval, but panics on errors.
func MustEval[F graph.ExecGraphFnOneOutput](backend backends.Backend, fn F, args ...any) *tensors.Tensor {
	result, err := Eval(backend, fn, args...)
	if err != nil {
		panic(err)
	}
	return result
}
