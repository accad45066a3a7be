// Package xslices holds slice helpers used to manipulate dimensions and axes, and list-valued command line flags.
package xslices

import (
	"cmp"
	"flag"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
)

// Number is any of the Go real number types.
type Number interface {
	constraints.Integer | constraints.Float
}

// Last returns the last element of a slice. It panics if the slice is empty.
func Last[T any](slice []T) T {
	return slice[len(slice)-1]
}

// SliceWithValue returns a slice of the given size filled with value.
func SliceWithValue[T any](size int, value T) []T {
	s := make([]T, size)
	for ii := range s {
		s[ii] = value
	}
	return s
}

// SortedKeys returns the keys of a map in sorted order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	return slices.Sorted(maps.Keys(m))
}

// Iota returns a slice of incremental values, starting with start and of the given length.
// Eg: Iota(3, 2) -> []int{3, 4}
func Iota[T Number](start T, length int) []T {
	s := make([]T, length)
	for ii := range s {
		s[ii] = start + T(ii)
	}
	return s
}

// Product returns the product of the values of the slice, 1 for an empty slice: the number of elements
// of a list of dimensions.
func Product[T Number](slice []T) T {
	p := T(1)
	for _, v := range slice {
		p *= v
	}
	return p
}

// Map returns the slice of fn applied to every element of in.
func Map[In, Out any](in []In, fn func(e In) Out) []Out {
	out := make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return out
}

// Flag registers in flag.CommandLine a flag holding a comma-separated list of values, parsed individually
// by parserFn. It returns a pointer to the parsed values.
//
// Example:
//
//	var flagAxes = xslices.Flag("axes", nil, "axes to reduce", strconv.Atoi)
func Flag[T any](name string, defaultValue []T, usage string, parserFn func(value string) (T, error)) *[]T {
	return FlagSetVar(flag.CommandLine, name, defaultValue, usage, parserFn)
}

// FlagSetVar is like Flag, but registers the flag in the given flag.FlagSet.
func FlagSetVar[T any](flagSet *flag.FlagSet, name string, defaultValue []T, usage string,
	parserFn func(value string) (T, error)) *[]T {
	f := &listFlag[T]{values: defaultValue, parserFn: parserFn}
	flagSet.Var(f, name, usage)
	return &f.values
}

// listFlag implements flag.Value for a comma-separated list of values.
type listFlag[T any] struct {
	values   []T
	parserFn func(value string) (T, error)
}

func (f *listFlag[T]) String() string {
	if f == nil {
		return ""
	}
	return strings.Join(Map(f.values, func(v T) string { return fmt.Sprint(v) }), ",")
}

func (f *listFlag[T]) Set(list string) error {
	if list == "" {
		f.values = []T{}
		return nil
	}
	parts := strings.Split(list, ",")
	values := make([]T, len(parts))
	for ii, part := range parts {
		var err error
		values[ii], err = f.parserFn(strings.TrimSpace(part))
		if err != nil {
			return err
		}
	}
	f.values = values
	return nil
}
