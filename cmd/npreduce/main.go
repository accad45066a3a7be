// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// npreduce loads an array from a .npy, .npz or .csv file and prints the result of a NumPy-style reduction.
//
// Examples:
//
//	npreduce -op=sum -axes=1 -keepdims data.npy
//	npreduce -op=quantile -q=0.25,0.5,0.75 -method=nearest data.csv
//	npreduce -op=nanvar -ddof=1 -key=weights model.npz
//	npreduce -list
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/npreduce/backends"
	_ "github.com/gomlx/npreduce/backends/simplego"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/numpy"
	"github.com/gomlx/npreduce/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagOp   = flag.String("op", "sum", "Reduction to apply. Use -list to see the available ones.")
	flagList = flag.Bool("list", false, "List the available reductions and exit.")
	flagAxes = xslices.Flag("axes", nil,
		"Comma-separated list of axes to reduce. If not set, all axes are reduced. "+
			"Cumulative reductions take at most one axis, and flatten the input if none is given.",
		strconv.Atoi)
	flagKeepDims = flag.Bool("keepdims", false, "Keep the reduced axes in the result, with dimension 1.")
	flagDType    = flag.String("dtype", "", "DType of the result (e.g. \"float32\"). Default depends on the reduction.")
	flagDDof     = flag.Int("ddof", 0, "Delta degrees of freedom of var, std, nanvar and nanstd.")
	flagQ        = xslices.Flag("q", []float64{0.5},
		"Comma-separated list of quantiles (in [0, 1]) or percentiles (in [0, 100]) for the order statistics.",
		func(value string) (float64, error) { return strconv.ParseFloat(value, 64) })
	flagMethod    = flag.String("method", "linear", "Method of quantile estimation: linear, lower, higher, midpoint or nearest.")
	flagKey       = flag.String("key", "", "Name of the array to reduce in a .npz file. Optional if it holds only one array.")
	flagCSVHeader = flag.Bool("csv_header", true, "Whether the first line of a .csv file holds the column names.")
	flagBackend   = flag.String("backend", "",
		fmt.Sprintf("Backend configuration. If empty, it is taken from $%s, or the default backend is used.",
			backends.ConfigEnvVar))
	flagX32       = flag.Bool("x32", false, "Use 32-bit defaults for the dtype promotion of the reductions.")
	flagColor     = flag.Bool("color", true, "Style the output when writing to a terminal.")
	flagPrecision = flag.Int("precision", 6, "Number of significant digits printed for floating point values.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	configureStyle(*flagColor)

	if *flagList {
		listReductions(os.Stdout)
		return
	}
	if err := run(flag.Args()); err != nil {
		klog.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return errors.Errorf("expected exactly one array file (.npy, .npz or .csv) to reduce, got %d arguments: "+
			"see 'npreduce -help'", len(args))
	}
	if *flagX32 {
		numpy.SetPrecision(numpy.X32)
	}
	opts, err := parseOptions()
	if err != nil {
		return err
	}
	input, err := LoadArray(args[0], *flagKey, *flagCSVHeader)
	if err != nil {
		return err
	}
	backend := must.M1(newBackend(*flagBackend))
	defer backend.Finalize()

	result, err := Reduce(backend, input, opts)
	if err != nil {
		return err
	}
	report(os.Stdout, args[0], input, opts, result, *flagPrecision)
	return nil
}

// parseOptions converts the flags to the options of the reduction.
func parseOptions() (*Options, error) {
	op := strings.ToLower(*flagOp)
	if _, found := reductions[op]; !found {
		return nil, errors.Errorf("unknown reduction %q, use -list to see the available ones", *flagOp)
	}
	opts := &Options{
		Op:       op,
		Axes:     *flagAxes,
		AxesSet:  isFlagSet("axes"),
		KeepDims: *flagKeepDims,
		DDof:     *flagDDof,
		Q:        *flagQ,
	}
	if *flagDType != "" {
		dtype, err := dtypes.FromName(*flagDType)
		if err != nil {
			return nil, err
		}
		opts.DType = dtype
	}
	method, err := numpy.ParseQuantileMethod(*flagMethod)
	if err != nil {
		return nil, err
	}
	opts.Method = method
	return opts, nil
}

func isFlagSet(name string) (found bool) {
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return
}

func newBackend(config string) (backends.Backend, error) {
	if config == "" {
		return backends.New()
	}
	return backends.NewWithConfig(config)
}
