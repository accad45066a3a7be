// Package tensors implements Tensor, a host-side multidimensional array used as input and output of
// the reduction graphs.
//
// A Tensor is defined by its shape (a DType and its dimensions) and its content, stored as a flat
// row-major Go slice of the Go type matching the DType (e.g. []float32 for dtypes.Float32). Go's `int`
// is always stored as int64 (or int32 on 32-bit platforms).
//
// There are various ways to construct a Tensor from local data:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int): a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): a Tensor with the
//     given dimensions, holding the given flat data. Example:
//
//     t := FromFlatDataAndDimensions([]int8{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
//   - FromValue[S MultiDimensionSlice](value S): converts scalars or arbitrary (regular)
//     multidimensional slices. Example:
//
//     t := FromValue([][]float64{{1,2}, {3, 5}, {7, 11}})
//
//   - FromAnyValue(value any): same as FromValue but non-generic. If value is already a Tensor
//     it is returned as is.
package tensors

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor represents a multidimensional array (from scalar with 0 dimensions, to arbitrarily large dimensions),
// defined by its shape and its content stored as a flat (1D) slice of values.
//
// Tensors are not safe for concurrent mutation, but concurrent reads are fine.
type Tensor struct {
	shape shapes.Shape

	// flat holds a []T, where T is the Go type of shape.DType.
	flat any
}

// MultiDimensionSlice lists the Go types a Tensor can be converted to/from. There are no recursions in
// generics' constraint definitions, so we list up to 6 levels of slices. FromAnyValue works with any
// arbitrary number of levels.
type MultiDimensionSlice interface {
	bool | float32 | float64 | int | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | complex64 | complex128 |
		[]bool | []float32 | []float64 | []int | []int8 | []int16 | []int32 | []int64 | []uint8 | []uint16 | []uint32 | []uint64 | []complex64 | []complex128 |
		[][]bool | [][]float32 | [][]float64 | [][]int | [][]int8 | [][]int16 | [][]int32 | [][]int64 | [][]uint8 | [][]uint16 | [][]uint32 | [][]uint64 | [][]complex64 | [][]complex128 |
		[][][]bool | [][][]float32 | [][][]float64 | [][][]int | [][][]int8 | [][][]int16 | [][][]int32 | [][][]int64 | [][][]uint8 | [][][]uint16 | [][][]uint32 | [][][]uint64 | [][][]complex64 | [][][]complex128 |
		[][][][]bool | [][][][]float32 | [][][][]float64 | [][][][]int | [][][][]int32 | [][][][]int64 | [][][][]uint8 | [][][][]uint32 | [][][][]uint64 | [][][][]complex64 | [][][][]complex128 |
		[][][][][]bool | [][][][][]float32 | [][][][][]float64 | [][][][][]int | [][][][][]int32 | [][][][][]int64 | [][][][][]uint8 | [][][][][]uint32 | [][][][][]uint64 | [][][][][]complex64 | [][][][][]complex128
}

// MakeFlat allocates a flat slice ([]T for the Go type T of dtype) with the given length.
func MakeFlat(dtype dtypes.DType, length int) any {
	return reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface()
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	return &Tensor{shape: shape.Clone(), flat: MakeFlat(shape.DType, shape.Size())}
}

// FromFlat wraps the given flat slice (not copied) into a Tensor of the given shape.
//
// It returns an error if the flat slice type or length doesn't match the shape.
func FromFlat(shape shapes.Shape, flat any) (*Tensor, error) {
	if !shape.Ok() {
		return nil, errors.Errorf("tensors.FromFlat(%s): invalid shape", shape)
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type().Elem() != shape.DType.GoType() {
		return nil, errors.Errorf("tensors.FromFlat(%s): flat data of type %T doesn't match the dtype, expected []%s",
			shape, flat, shape.DType.GoStr())
	}
	if flatV.Len() != shape.Size() {
		return nil, errors.Errorf("tensors.FromFlat(%s): flat data has length %d, but shape size is %d",
			shape, flatV.Len(), shape.Size())
	}
	return &Tensor{shape: shape.Clone(), flat: flat}, nil
}

// FromScalar creates a scalar Tensor with the given value.
func FromScalar[T dtypes.Supported](value T) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a Tensor with the given dimensions, filled with the scalar value given.
func FromScalarAndDimensions[T dtypes.Supported](value T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	t := FromShape(shapes.Make(dtype, dimensions...))
	flatV := reflect.ValueOf(t.flat)
	v := reflect.ValueOf(value).Convert(dtype.GoType())
	for ii := range flatV.Len() {
		flatV.Index(ii).Set(v)
	}
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values
// given in `data`. The data is copied.
//
// It panics if len(data) doesn't match the product of the dimensions.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	dtype := dtypes.FromGenericsType[T]()
	shape := shapes.Make(dtype, dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(data[%d], %v): shape %s requires %d elements",
			len(data), dimensions, shape, shape.Size())
	}
	t := FromShape(shape)
	reflect.Copy(reflect.ValueOf(t.flat), reflect.ValueOf(data).Convert(reflect.TypeOf(t.flat)))
	return t
}

// FromValue returns a Tensor constructed from a scalar or a multidimensional slice. Slices must be regular:
// all the sub-slices of a level must have the same length.
//
// It panics with an error if the value is not regular.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	return FromAnyValue(value)
}

// FromAnyValue is a non-generic version of FromValue. If value is already a *Tensor, it is returned as is.
//
// It panics with an error if the value type is unsupported or the shape is not regular.
func FromAnyValue(value any) *Tensor {
	if valueT, ok := value.(*Tensor); ok {
		return valueT
	}
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.WithMessagef(err, "cannot create Tensor from %T", value))
	}
	t := FromShape(shape)
	flatV := reflect.ValueOf(t.flat)
	valueV := reflect.ValueOf(value)
	if shape.IsScalar() {
		flatV.Index(0).Set(valueV.Convert(shape.DType.GoType()))
		return t
	}
	copySlicesRecursively(flatV, valueV, shape.Strides())
	return t
}

// copySlicesRecursively copies the values of a multidimensional slice to the flat data, given the strides of
// each axis. Leaves are converted element by element, to handle Go's `int`.
func copySlicesRecursively(data reflect.Value, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		elemType := data.Type().Elem()
		if mdSlice.Type().Elem() == elemType {
			reflect.Copy(data, mdSlice)
			return
		}
		for ii := range mdSlice.Len() {
			data.Index(ii).Set(mdSlice.Index(ii).Convert(elemType))
		}
		return
	}
	for ii := range mdSlice.Len() {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		copySlicesRecursively(subData, mdSlice.Index(ii), strides[1:])
	}
}

func shapeForValue(v any) (shapes.Shape, error) {
	if v == nil {
		return shapes.Invalid(), errors.New("nil value")
	}
	var shape shapes.Shape
	err := shapeForValueRecursive(&shape, reflect.ValueOf(v), reflect.TypeOf(v))
	return shape, err
}

func shapeForValueRecursive(shape *shapes.Shape, v reflect.Value, t reflect.Type) error {
	switch t.Kind() {
	case reflect.Slice:
		t = t.Elem()
		shape.Dimensions = append(shape.Dimensions, v.Len())
		shapePrefix := shape.Clone()
		if v.Len() == 0 {
			return errors.Errorf("empty slice %s can't be converted: use FromShape for arrays with zero-sized axes", v.Type())
		}
		if err := shapeForValueRecursive(shape, v.Index(0), t); err != nil {
			return err
		}
		for ii := 1; ii < v.Len(); ii++ {
			shapeTest := shapePrefix.Clone()
			if err := shapeForValueRecursive(&shapeTest, v.Index(ii), t); err != nil {
				return err
			}
			if !shape.Equal(shapeTest) {
				return errors.Errorf("sub-slices have irregular shapes, found shapes %s and %s", shape, shapeTest)
			}
		}

	case reflect.Pointer:
		return errors.Errorf("cannot convert pointer (%s) to a Tensor value", t)

	default:
		shape.DType = dtypes.FromGoType(t)
		if shape.DType == dtypes.InvalidDType {
			return errors.Errorf("cannot convert type %s to a Tensor value", t)
		}
	}
	return nil
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements in the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor is a scalar.
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// Flat returns the flat slice ([]T) holding the tensor data. It is not a copy: changes to it are
// visible in the tensor.
func (t *Tensor) Flat() any { return t.flat }

// ConstFlatData calls accessFn with the flat data of the tensor. It panics if T doesn't match the dtype.
//
// The slice is only valid during the call and shouldn't be changed.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	accessFn(typedFlat[T](t))
}

// MutableFlatData calls accessFn with the flat data of the tensor, which can be modified.
// It panics if T doesn't match the dtype.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) {
	accessFn(typedFlat[T](t))
}

// CopyFlatData returns a copy of the flat data of the tensor. It panics if T doesn't match the dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	flat := typedFlat[T](t)
	return append([]T(nil), flat...)
}

func typedFlat[T dtypes.Supported](t *Tensor) []T {
	if flat, ok := t.flat.([]T); ok {
		return flat
	}
	var zero T
	if _, isInt := any(zero).(int); isInt {
		exceptions.Panicf("Go int is not a storage type for tensors (%s), use int%d instead", t.shape, strconv.IntSize)
	}
	exceptions.Panicf("tensor %s flat data is %T, requested []%T", t.shape, t.flat, zero)
	return nil
}

// ToScalar returns the scalar value of the Tensor converted to T.
//
// It panics if the tensor is not a scalar or if the value can't be converted.
func ToScalar[T dtypes.Supported](t *Tensor) T {
	if !t.shape.IsScalar() {
		exceptions.Panicf("ToScalar requires a scalar Tensor, got shape %s", t.shape)
	}
	var zero T
	v := reflect.ValueOf(t.flat).Index(0)
	target := reflect.TypeOf(zero)
	if !v.CanConvert(target) {
		exceptions.Panicf("ToScalar can't convert %s to %s", v.Type(), target)
	}
	return v.Convert(target).Interface().(T)
}

// Value returns a multidimensional slice (or a scalar) with a copy of the tensor contents.
func (t *Tensor) Value() any {
	flatV := reflect.ValueOf(t.flat)
	if t.shape.IsScalar() {
		return flatV.Index(0).Interface()
	}
	flatCopy := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopy, flatV)
	return convertDataToSlices(flatCopy, t.shape.Dimensions...).Interface()
}

// convertDataToSlices takes data as a flat slice and creates a multidimensional slice with the given dimensions
// that points to the given data.
func convertDataToSlices(dataV reflect.Value, dimensions ...int) reflect.Value {
	if len(dimensions) <= 1 {
		return dataV
	}
	resultT := dataV.Type().Elem()
	for range dimensions {
		resultT = reflect.SliceOf(resultT)
	}
	strides := shapes.Make(dtypes.Bool, dimensions...).Strides()
	return createSlicesRecursively(resultT, dataV, dimensions, strides)
}

func createSlicesRecursively(resultT reflect.Type, data reflect.Value, dimensions []int, strides []int) reflect.Value {
	if len(strides) == 1 {
		return data
	}
	numElements := dimensions[0]
	slice := reflect.MakeSlice(resultT, numElements, numElements)
	for ii := range numElements {
		subData := data.Slice(ii*strides[0], (ii+1)*strides[0])
		slice.Index(ii).Set(createSlicesRecursively(resultT.Elem(), subData, dimensions[1:], strides[1:]))
	}
	return slice
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	flatV := reflect.ValueOf(t.flat)
	flatCopy := reflect.MakeSlice(flatV.Type(), flatV.Len(), flatV.Len())
	reflect.Copy(flatCopy, flatV)
	return &Tensor{shape: t.shape.Clone(), flat: flatCopy.Interface()}
}

// String implements fmt.Stringer, using Summary with a default precision.
func (t *Tensor) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Summary(6)
}

// GoStr returns a Go-syntax like representation of the tensor.
func (t *Tensor) GoStr() string {
	if t.shape.IsZeroSize() {
		return t.shape.String()
	}
	if t.IsScalar() {
		return fmt.Sprintf("%s(%v)", t.shape.DType.GoStr(), t.Value())
	}
	return fmt.Sprintf("%s: %v", t.shape, t.Value())
}
