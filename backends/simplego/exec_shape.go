// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

func init() {
	nodeExecutors[backends.OpTypeReshape] = execReshape
	nodeExecutors[backends.OpTypeTranspose] = execTranspose
	nodeExecutors[backends.OpTypeBroadcastInDim] = execBroadcastInDim
	nodeExecutors[backends.OpTypeConcatenate] = execConcatenate
	nodeExecutors[backends.OpTypeTakeAlongAxis] = execTakeAlongAxis
}

func gatherValues[T any](values []T, srcIndices []int) []T {
	out := make([]T, len(srcIndices))
	for ii, srcIdx := range srcIndices {
		out[ii] = values[srcIdx]
	}
	return out
}

// gatherWide returns the wide values at the given source indices.
func gatherWide(wide any, srcIndices []int) any {
	switch values := wide.(type) {
	case []bool:
		return gatherValues(values, srcIndices)
	case []int64:
		return gatherValues(values, srcIndices)
	case []uint64:
		return gatherValues(values, srcIndices)
	case []float64:
		return gatherValues(values, srcIndices)
	case []complex128:
		return gatherValues(values, srcIndices)
	}
	panic(errors.Errorf("simplego: unsupported wide data type %T", wide))
}

// execGather creates the output of node by gathering the input values at srcIndices.
func execGather(backend *Backend, node *Node, input *Buffer, srcIndices []int) *Buffer {
	return newOutput(backend, node, gatherWide(widen(input), srcIndices))
}

// execReshape reuses the input buffer if it is owned, since the flat data doesn't change.
func execReshape(backend *Backend, node *Node, inputs []*Buffer, inputsOwned []bool) (*Buffer, error) {
	if inputsOwned[0] {
		output := inputs[0]
		output.shape = node.shape.Clone()
		return output, nil
	}
	output := backend.NewBuffer(node.shape)
	copyFlat(output.flat, inputs[0].flat)
	return output, nil
}

func execTranspose(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	permutation := node.data.([]int)
	inputStrides := inputs[0].shape.Strides()
	srcIndices := make([]int, node.shape.Size())
	for flatIdx, indices := range node.shape.Iter() {
		srcIdx := 0
		for axis, idx := range indices {
			srcIdx += idx * inputStrides[permutation[axis]]
		}
		srcIndices[flatIdx] = srcIdx
	}
	return execGather(backend, node, inputs[0], srcIndices), nil
}

func execBroadcastInDim(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	broadcastAxes := node.data.([]int)
	operandShape := inputs[0].shape
	operandStrides := operandShape.Strides()
	srcIndices := make([]int, node.shape.Size())
	for flatIdx, indices := range node.shape.Iter() {
		srcIdx := 0
		for operandAxis, outputAxis := range broadcastAxes {
			if operandShape.Dimensions[operandAxis] != 1 {
				srcIdx += indices[outputAxis] * operandStrides[operandAxis]
			}
		}
		srcIndices[flatIdx] = srcIdx
	}
	return execGather(backend, node, inputs[0], srcIndices), nil
}

// axisLayout describes a shape as [outer, dim, inner], split around one axis, for row-major layouts.
type axisLayout struct {
	outer, dim, inner int
}

func newAxisLayout(shape shapes.Shape, axis int) axisLayout {
	l := axisLayout{outer: 1, dim: shape.Dimensions[axis], inner: 1}
	for ii, dim := range shape.Dimensions {
		if ii < axis {
			l.outer *= dim
		} else if ii > axis {
			l.inner *= dim
		}
	}
	return l
}

// index returns the flat index of element k along the axis, for the given outer and inner positions.
func (l axisLayout) index(outer, k, inner int) int {
	return (outer*l.dim+k)*l.inner + inner
}

func concatenateValues[T any](parts []any) []T {
	var out []T
	for _, part := range parts {
		out = append(out, part.([]T)...)
	}
	return out
}

func execConcatenate(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	axis := node.data.(int)
	parts := make([]any, len(inputs))
	offsets := make([]int, len(inputs))
	offset := 0
	for ii, input := range inputs {
		parts[ii] = widen(input)
		offsets[ii] = offset
		offset += input.shape.Size()
	}
	var joined any
	switch parts[0].(type) {
	case []bool:
		joined = concatenateValues[bool](parts)
	case []int64:
		joined = concatenateValues[int64](parts)
	case []uint64:
		joined = concatenateValues[uint64](parts)
	case []float64:
		joined = concatenateValues[float64](parts)
	case []complex128:
		joined = concatenateValues[complex128](parts)
	}

	outputLayout := newAxisLayout(node.shape, axis)
	srcIndices := make([]int, 0, node.shape.Size())
	for outer := range outputLayout.outer {
		for ii, input := range inputs {
			inputLayout := newAxisLayout(input.shape, axis)
			for k := range inputLayout.dim {
				for inner := range inputLayout.inner {
					srcIndices = append(srcIndices, offsets[ii]+inputLayout.index(outer, k, inner))
				}
			}
		}
	}
	return newOutput(backend, node, gatherWide(joined, srcIndices)), nil
}

// indicesAsInts converts an integer buffer to []int.
func indicesAsInts(buffer *Buffer) []int {
	switch values := widen(buffer).(type) {
	case []int64:
		return mapValues(values, func(v int64) int { return int(v) })
	case []uint64:
		return mapValues(values, func(v uint64) int { return int(min(v, uint64(1<<62))) })
	}
	panic(errors.Errorf("simplego: indices must be integers, got %s", buffer.shape))
}

// execTakeAlongAxis gathers values along the axis. Indices are clamped to the valid range.
func execTakeAlongAxis(backend *Backend, node *Node, inputs []*Buffer, _ []bool) (*Buffer, error) {
	axis := node.data.(int)
	operandLayout := newAxisLayout(inputs[0].shape, axis)
	indicesLayout := newAxisLayout(inputs[1].shape, axis)
	indices := indicesAsInts(inputs[1])
	srcIndices := make([]int, len(indices))
	for outer := range indicesLayout.outer {
		for k := range indicesLayout.dim {
			for inner := range indicesLayout.inner {
				flatIdx := indicesLayout.index(outer, k, inner)
				srcK := min(max(indices[flatIdx], 0), operandLayout.dim-1)
				srcIndices[flatIdx] = operandLayout.index(outer, srcK, inner)
			}
		}
	}
	return execGather(backend, node, inputs[0], srcIndices), nil
}
