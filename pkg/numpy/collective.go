// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/distributed"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/pkg/errors"
)

// CollectiveReducer reduces values across the replicas of a distributed computation, over named axes.
//
// It is used by reductions configured with NamedAxes, after the positional axes have been reduced.
type CollectiveReducer interface {
	// Reduce x across the replicas along the named axes, using the given reduction.
	// The output has the same shape as x.
	Reduce(x *graph.Node, reduceType backends.ReduceOpType, axisNames []string) *graph.Node
}

// MeshCollective implements CollectiveReducer with the backend's AllReduce, with the replicas organized
// by a distributed.ReplicaMesh.
type MeshCollective struct {
	Mesh *distributed.ReplicaMesh
}

var _ CollectiveReducer = (*MeshCollective)(nil)

// NewMeshCollective creates a MeshCollective for a mesh of the given axes sizes and names.
func NewMeshCollective(axesSizes []int, axesNames []string) (*MeshCollective, error) {
	mesh, err := distributed.NewReplicaMesh(axesSizes, axesNames)
	if err != nil {
		return nil, errors.WithMessage(err, "NewMeshCollective")
	}
	return &MeshCollective{Mesh: mesh}, nil
}

// Reduce implements CollectiveReducer.
func (c *MeshCollective) Reduce(x *graph.Node, reduceType backends.ReduceOpType, axisNames []string) *graph.Node {
	groups, err := c.Mesh.ReplicaGroups(axisNames)
	if err != nil {
		panic(errors.WithMessagef(err, "failed to reduce over named axes %q", axisNames))
	}
	return graph.AllReduce([]*graph.Node{x}, reduceType, groups)[0]
}
