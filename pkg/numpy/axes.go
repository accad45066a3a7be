// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/support/sets"
	"github.com/gomlx/npreduce/pkg/support/xslices"
)

// axisKind tells whether a reduction is over array axes only, or also over named (replica) axes.
type axisKind int

const (
	positionalAxes axisKind = iota
	namedAxes
)

// axesSpec is the axis specification given to a reduction: all axes (the default), or the listed ones.
// The list may be explicitly empty, in which case nothing is reduced.
type axesSpec struct {
	axes  []int
	isSet bool
	names []string
}

func (s *axesSpec) set(axes []int) {
	s.axes = slices.Clone(axes)
	s.isSet = true
}

func (s *axesSpec) kind() axisKind {
	if len(s.names) > 0 {
		return namedAxes
	}
	return positionalAxes
}

// resolve returns the sorted canonical axes to reduce for an array of the given rank.
// It panics for out-of-range or repeated axes.
//
// When only named axes are given, no positional axis is reduced.
func (s *axesSpec) resolve(opName string, rank int) []int {
	if !s.isSet {
		if s.kind() == namedAxes {
			return nil
		}
		return xslices.Iota(0, rank)
	}
	return canonicalizeAxes(opName, rank, s.axes)
}

func canonicalizeAxis(opName string, axis, rank int) int {
	if axis < -rank || axis >= rank {
		exceptions.Panicf("%s: axis %d is out of bounds for array of dimension %d", opName, axis, rank)
	}
	if axis < 0 {
		axis += rank
	}
	return axis
}

func canonicalizeAxes(opName string, rank int, axes []int) []int {
	canonical := make([]int, len(axes))
	seen := sets.Make[int](len(axes))
	for ii, axis := range axes {
		canonical[ii] = canonicalizeAxis(opName, axis, rank)
		if !seen.Add(canonical[ii]) {
			exceptions.Panicf("%s: duplicate value in 'axis': %v", opName, axes)
		}
	}
	slices.Sort(canonical)
	return canonical
}

// reducedSize returns the number of elements reduced over the given axes.
func reducedSize(shape shapes.Shape, axes []int) int {
	return xslices.Product(xslices.Map(axes, func(axis int) int { return shape.Dimensions[axis] }))
}

// keptDimensions returns the dimensions of shape with the reduced axes set to 1.
func keptDimensions(shape shapes.Shape, axes []int) []int {
	dims := slices.Clone(shape.Dimensions)
	for _, axis := range axes {
		dims[axis] = 1
	}
	return dims
}

// reducedDimensions returns the dimensions of shape with the reduced axes removed.
func reducedDimensions(shape shapes.Shape, axes []int) []int {
	reduced := sets.MakeWith(axes...)
	dims := make([]int, 0, shape.Rank())
	for axis, dim := range shape.Dimensions {
		if !reduced.Has(axis) {
			dims = append(dims, dim)
		}
	}
	return dims
}

// keepReducedAxes reshapes a reduced result to keep the reduced axes of the original shape with dimension 1.
func keepReducedAxes(result *graph.Node, original shapes.Shape, axes []int) *graph.Node {
	if len(axes) == 0 {
		return result
	}
	return graph.Reshape(result, keptDimensions(original, axes)...)
}

// asNode converts a *graph.Node, a *tensors.Tensor or a Go value (scalar or multidimensional slice) to a graph.Node
// in the graph g. If dtype is not InvalidDType, the value is converted to it.
func asNode(g *graph.Graph, value any, dtype dtypes.DType) *graph.Node {
	var node *graph.Node
	switch v := value.(type) {
	case *graph.Node:
		if v.Graph() != g {
			exceptions.Panicf("node given as argument is from a different graph")
		}
		node = v
	case *tensors.Tensor:
		node = graph.ConstTensor(g, v)
	default:
		node = graph.Const(g, value)
	}
	if dtype != dtypes.InvalidDType {
		node = graph.ConvertDType(node, dtype)
	}
	return node
}

// asMask converts a "where" argument to a boolean mask, broadcast to the shape of x: non-boolean values
// are compared to zero.
func asMask(opName string, x *graph.Node, where any) *graph.Node {
	mask := asNode(x.Graph(), where, dtypes.InvalidDType)
	if mask.DType() != dtypes.Bool {
		mask = graph.NotEqual(mask, graph.ScalarZero(x.Graph(), mask.DType()))
	}
	dims, err := graph.BroadcastDimensions(mask.Shape(), x.Shape())
	if err != nil || !slices.Equal(dims, x.Shape().Dimensions) {
		exceptions.Panicf("%s: where mask of shape %s cannot be broadcast to the input shape %s",
			opName, mask.Shape(), x.Shape())
	}
	return graph.BroadcastToShape(mask, x.Shape().WithDType(dtypes.Bool))
}
