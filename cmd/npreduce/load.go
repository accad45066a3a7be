// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/gomlx/npreduce/pkg/core/tensors/npy"
	"github.com/gomlx/npreduce/pkg/support/fsutil"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LoadArray loads the array stored in filePath, according to its extension:
//
//   - ".npy": a NumPy array.
//   - ".npz": the array named key of a NumPy archive. The key can be omitted if the archive holds only one array.
//   - ".csv": a table of numbers, loaded as a Float64 array of shape [rows, columns]. Values that are not
//     numbers are loaded as NaN.
func LoadArray(filePath, key string, csvHeader bool) (*tensors.Tensor, error) {
	resolved, err := fsutil.ResolveFile(filePath)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".npy":
		return npy.ReadFile(resolved)
	case ".npz":
		arrays, err := npy.ReadNpzFile(resolved)
		if err != nil {
			return nil, err
		}
		return selectArray(filePath, arrays, key)
	case ".csv":
		f, err := os.Open(resolved)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q", filePath)
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(f, csvHeader)
	default:
		return nil, errors.Errorf("unknown extension %q of file %q: only .npy, .npz and .csv are supported", ext, filePath)
	}
}

func selectArray(filePath string, arrays map[string]*tensors.Tensor, key string) (*tensors.Tensor, error) {
	names := xslices.SortedKeys(arrays)
	if key == "" {
		if len(names) != 1 {
			return nil, errors.Errorf("archive %q holds %d arrays %q: select one with -key", filePath, len(names), names)
		}
		key = names[0]
	}
	array, found := arrays[key]
	if !found {
		return nil, errors.Errorf("archive %q has no array %q, it holds %q", filePath, key, names)
	}
	klog.V(1).Infof("Using array %q of %q", key, filePath)
	return array, nil
}

// ReadCSV reads a table of numbers as a Float64 tensor of shape [rows, columns].
func ReadCSV(r io.Reader, hasHeader bool) (*tensors.Tensor, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(hasHeader),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "failed to parse CSV")
	}
	numRows, numCols := df.Dims()
	flat := make([]float64, numRows*numCols)
	for col, name := range df.Names() {
		for row, value := range df.Col(name).Float() {
			flat[row*numCols+col] = value
		}
	}
	klog.V(1).Infof("Loaded CSV with %d rows and columns %q", numRows, df.Names())
	return tensors.FromFlatDataAndDimensions(flat, numRows, numCols), nil
}
