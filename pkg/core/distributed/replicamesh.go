// Package distributed describes how the replicas of a distributed computation are organized, so reductions
// can refer to groups of replicas by named axes.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/npreduce/pkg/support/sets"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/pkg/errors"
)

// ReplicaMesh organizes the replicas of a computation in a multidimensional grid with named axes.
//
// Replicas are numbered in row-major order of the grid: for a mesh of sizes [2, 2] with axes
// ["batch", "data"], replica 1 is at batch=0, data=1.
type ReplicaMesh struct {
	axesNames  []string
	axesSizes  []int
	nameToAxis map[string]int
}

// IsNameValid checks whether a name is a valid identifier for a mesh axis: an ASCII letter or underscore
// followed by letters, digits or underscores.
func IsNameValid(name string) bool {
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}

// NewReplicaMesh creates a mesh with the given number of replicas along each named axis.
//
// Example:
//
//	mesh, err := NewReplicaMesh([]int{2, 4}, []string{"batch", "data"})  // 8 replicas.
func NewReplicaMesh(axesSizes []int, axesNames []string) (*ReplicaMesh, error) {
	if len(axesSizes) != len(axesNames) {
		return nil, errors.Errorf("axesSizes and axesNames must have the same length, got %d and %d",
			len(axesSizes), len(axesNames))
	}
	if len(axesSizes) == 0 {
		return nil, errors.New("ReplicaMesh axesSizes cannot be empty")
	}
	nameToAxis := make(map[string]int, len(axesNames))
	for axis, name := range axesNames {
		if !IsNameValid(name) {
			return nil, errors.Errorf("ReplicaMesh axis name %q at index %d is not a valid identifier, it must "+
				"start with an ASCII letter and be followed only by letters, numbers or underscore", name, axis)
		}
		if _, found := nameToAxis[name]; found {
			return nil, errors.Errorf("ReplicaMesh axis name %q is duplicated", name)
		}
		if axesSizes[axis] < 1 {
			return nil, errors.Errorf("ReplicaMesh axis %q must have at least one replica, got %d",
				name, axesSizes[axis])
		}
		nameToAxis[name] = axis
	}
	return &ReplicaMesh{
		axesNames:  slices.Clone(axesNames),
		axesSizes:  slices.Clone(axesSizes),
		nameToAxis: nameToAxis,
	}, nil
}

// NumReplicas returns the total number of replicas in the mesh.
func (m *ReplicaMesh) NumReplicas() int {
	return xslices.Product(m.axesSizes)
}

// Rank returns the number of axes of the mesh.
func (m *ReplicaMesh) Rank() int {
	return len(m.axesSizes)
}

// AxesNames returns a copy of the mesh's axis names.
func (m *ReplicaMesh) AxesNames() []string {
	return slices.Clone(m.axesNames)
}

// AxisSize returns the number of replicas along the named axis.
func (m *ReplicaMesh) AxisSize(name string) (int, error) {
	axis, found := m.nameToAxis[name]
	if !found {
		return 0, errors.Errorf("mesh axis %q not found", name)
	}
	return m.axesSizes[axis], nil
}

// String implements fmt.Stringer.
func (m *ReplicaMesh) String() string {
	parts := make([]string, len(m.axesNames))
	for axis, name := range m.axesNames {
		parts[axis] = fmt.Sprintf("%s: %d", name, m.axesSizes[axis])
	}
	return "ReplicaMesh(" + strings.Join(parts, ", ") + ")"
}

// ReplicaGroups returns the groups of replicas reduced together when reducing over the named axes:
// replicas in the same group differ only in their coordinates along those axes.
//
// Example:
//
//	m, _ := NewReplicaMesh([]int{2, 2}, []string{"batch", "data"})
//	m.ReplicaGroups([]string{"batch"})          // [][]int{{0, 2}, {1, 3}}
//	m.ReplicaGroups([]string{"data"})           // [][]int{{0, 1}, {2, 3}}
//	m.ReplicaGroups([]string{"batch", "data"})  // [][]int{{0, 1, 2, 3}}
func (m *ReplicaMesh) ReplicaGroups(names []string) ([][]int, error) {
	reduced := make([]int, 0, len(names))
	seen := sets.Make[int](len(names))
	for _, name := range names {
		axis, found := m.nameToAxis[name]
		if !found {
			return nil, errors.Errorf("axis %q not found in %s", name, m)
		}
		if !seen.Add(axis) {
			return nil, errors.Errorf("axis %q is duplicated: each axis can only appear once", name)
		}
		reduced = append(reduced, axis)
	}
	kept := make([]int, 0, m.Rank()-len(reduced))
	for axis := range m.axesSizes {
		if !seen.Has(axis) {
			kept = append(kept, axis)
		}
	}

	// The group of a replica is its flat position on the kept axes, and its position within the group is
	// its flat position on the reduced axes, in the order the names were given.
	numReplicas := m.NumReplicas()
	groupSize := xslices.Product(xslices.Map(reduced, func(axis int) int { return m.axesSizes[axis] }))
	groups := make([][]int, numReplicas/groupSize)
	for ii := range groups {
		groups[ii] = make([]int, groupSize)
	}
	coordinates := make([]int, m.Rank())
	for replica := range numReplicas {
		remaining := replica
		for axis := m.Rank() - 1; axis >= 0; axis-- {
			coordinates[axis] = remaining % m.axesSizes[axis]
			remaining /= m.axesSizes[axis]
		}
		groups[m.flatPosition(coordinates, kept)][m.flatPosition(coordinates, reduced)] = replica
	}
	return groups, nil
}

// flatPosition returns the row-major position of coordinates restricted to the given axes.
func (m *ReplicaMesh) flatPosition(coordinates, axes []int) int {
	position := 0
	for _, axis := range axes {
		position = position*m.axesSizes[axis] + coordinates[axis]
	}
	return position
}
