// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/core/tensors/npy"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	got, err := ReadCSV(strings.NewReader("a,b,c\n1,2,3\n4,,6\n"), true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, got.Shape().Dimensions)
	flat := tensors.CopyFlatData[float64](got)
	assert.Equal(t, []float64{1, 2, 3, 4}, []float64{flat[0], flat[1], flat[2], flat[3]})
	assert.True(t, math.IsNaN(flat[4]))
	assert.Equal(t, 6.0, flat[5])

	got, err = ReadCSV(strings.NewReader("1,2\n3,4\n5,6\n"), false)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}, {5, 6}}, got.Value())
}

func TestLoadArray(t *testing.T) {
	dir := t.TempDir()
	x := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	y := tensors.FromValue([]int32{7, 8, 9})

	npyPath := filepath.Join(dir, "x.npy")
	must.M(npy.WriteFile(npyPath, x))
	got := must.M1(LoadArray(npyPath, "", true))
	assert.True(t, x.Equal(got))

	npzPath := filepath.Join(dir, "xy.npz")
	f := must.M1(os.Create(npzPath))
	must.M(npy.WriteNpz(f, map[string]*tensors.Tensor{"x": x, "y": y}))
	must.M(f.Close())
	got = must.M1(LoadArray(npzPath, "y", true))
	assert.True(t, y.Equal(got))
	_, err := LoadArray(npzPath, "", true)
	require.ErrorContains(t, err, "-key")
	_, err = LoadArray(npzPath, "z", true)
	require.Error(t, err)

	csvPath := filepath.Join(dir, "x.csv")
	must.M(os.WriteFile(csvPath, []byte("1,2,3\n"), 0o644))
	got = must.M1(LoadArray(csvPath, "", false))
	assert.Equal(t, [][]float64{{1, 2, 3}}, got.Value())

	txtPath := filepath.Join(dir, "x.txt")
	must.M(os.WriteFile(txtPath, []byte("1"), 0o644))
	_, err = LoadArray(txtPath, "", true)
	require.ErrorContains(t, err, "unknown extension")

	_, err = LoadArray(filepath.Join(dir, "missing.npy"), "", true)
	require.Error(t, err)
}
