// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
package graphtest

import (
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/gomlx/npreduce/backends"
	_ "github.com/gomlx/npreduce/backends/simplego"
	"github.com/gomlx/npreduce/pkg/core/graph"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

// TestGraphFn should build its own inputs, and return both inputs and outputs
type TestGraphFn func(g *graph.Graph) (inputs, outputs []*graph.Node)

var (
	backendOnce sync.Once

	officialTestBackendNames = []string{
		"go",
		"go:ops_sequential",
	}
	officialTestBackends = make(map[string]backends.Backend)
)

func init() {
	if selectedBackendName := os.Getenv(backends.ConfigEnvVar); selectedBackendName != "" {
		officialTestBackendNames = []string{selectedBackendName}
	}
}

// BuildTestBackend creates the test backends and returns the first one. It sets backends.DefaultConfig to it,
// and it can be overwritten by the NPREDUCE_BACKEND environment variable.
func BuildTestBackend() backends.Backend {
	backends.DefaultConfig = officialTestBackendNames[0]
	backendOnce.Do(func() {
		for ii, backendName := range officialTestBackendNames {
			backend, err := backends.NewWithConfig(backendName)
			if err != nil {
				if ii == 0 {
					klog.Fatalf("Failed to create backend %q: %+v", backendName, err)
				}
				klog.Errorf("Failed to create backend %q: %+v", backendName, err)
				continue
			}
			officialTestBackends[backendName] = backend
		}
	})
	return officialTestBackends[officialTestBackendNames[0]]
}

// TestOfficialBackends iterates over the list of test backends and calls testFn for each of them.
// If NPREDUCE_BACKEND environment variable is set, it will only iterate over the one set.
// Backends listed in excludeBackends are skipped.
func TestOfficialBackends(t *testing.T, testFn func(t *testing.T, backend backends.Backend), excludeBackends ...string) {
	BuildTestBackend()
	for _, backendName := range officialTestBackendNames {
		backend := officialTestBackends[backendName]
		if backend == nil || slices.Contains(excludeBackends, backendName) {
			continue
		}
		t.Run(backendName, func(t *testing.T) {
			testFn(t, backend)
		})
	}
}

// RunTestGraphFn tests a graph building function graphFn by executing it and comparing
// its output(s) to the values in want, reporting back any errors in t.
//
// delta is the margin of value on the difference of output and want values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunTestGraphFn(t *testing.T, testName string, graphFn TestGraphFn, want []any, delta float64) {
	RunTestGraphFnWithBackend(t, testName, BuildTestBackend(), graphFn, want, delta)
}

// RunTestGraphFnWithBackend is like RunTestGraphFn, but uses the given backend.
//
// A want value can also be a shapes.Shape, in which case a zero tensor of the shape is expected: useful for
// empty results.
func RunTestGraphFnWithBackend(t *testing.T, testName string, backend backends.Backend, graphFn TestGraphFn, want []any, delta float64) {
	delta = max(delta, 0)
	t.Run(testName, func(t *testing.T) {
		wantTensors := xslices.Map(want, func(value any) *tensors.Tensor {
			if s, ok := value.(shapes.Shape); ok {
				return tensors.FromShape(s)
			}
			return tensors.FromAnyValue(value)
		})

		var numInputs, numOutputs int
		wrapperFn := func(g *graph.Graph) []*graph.Node {
			i, o := graphFn(g)
			numInputs, numOutputs = len(i), len(o)
			all := append(i, o...)
			return all
		}
		exec := graph.MustNewExec(backend, wrapperFn)
		defer exec.Finalize()
		inputsAndOutputs, err := exec.Exec()
		require.NoErrorf(t, err, "%s: failed to execute graph", testName)
		inputs := inputsAndOutputs[:numInputs]
		outputs := inputsAndOutputs[numInputs:]

		fmt.Printf("\n%s:\n", testName)
		for ii, input := range inputs {
			fmt.Printf("\tInput %d: %s\n", ii, input.GoStr())
		}
		if numInputs > 0 {
			fmt.Printf("\t======\n")
		}
		for ii, output := range outputs {
			fmt.Printf("\tOutput %d: %s\n", ii, output.GoStr())
		}
		require.Equalf(t, len(want), numOutputs, "%s: number of wanted results different from number of outputs", testName)

		for ii, output := range outputs {
			require.Truef(t, wantTensors[ii].InDelta(output, delta), "%s: output #%d doesn't match wanted value %v, got %s",
				testName, ii, want[ii], output.GoStr())
		}
	})
}
