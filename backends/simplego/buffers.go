package simplego

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Compile-time check:
var _ backends.DataInterface = (*Backend)(nil)

// Buffer for SimpleGo backend holds a shape and a reference to the flat data.
type Buffer struct {
	shape shapes.Shape
	valid bool

	// flat is always a slice of the underlying data type (shape.DType).
	flat any
}

type bufferPoolKey struct {
	dtype  dtypes.DType
	length int
}

// getBufferPool for given dtype/length.
func (b *Backend) getBufferPool(dtype dtypes.DType, length int) *sync.Pool {
	key := bufferPoolKey{dtype: dtype, length: length}
	poolInterface, ok := b.bufferPools.Load(key)
	if !ok {
		poolInterface, _ = b.bufferPools.LoadOrStore(key, &sync.Pool{
			New: func() any {
				return &Buffer{
					flat:  reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), length, length).Interface(),
					shape: shapes.Make(dtype, length),
				}
			},
		})
	}
	return poolInterface.(*sync.Pool)
}

// getBuffer from backend pool of buffers.
func (b *Backend) getBuffer(dtype dtypes.DType, length int) *Buffer {
	pool := b.getBufferPool(dtype, length)
	buf := pool.Get().(*Buffer)
	buf.valid = true
	return buf
}

// putBuffer back into the backend pool of buffers.
// After this any references to buffer should be dropped.
func (b *Backend) putBuffer(buffer *Buffer) {
	if buffer == nil || !buffer.shape.Ok() {
		return
	}
	buffer.valid = false
	pool := b.getBufferPool(buffer.shape.DType, buffer.shape.Size())
	pool.Put(buffer)
}

// copyFlat assumes both flat slices are of the same underlying type.
func copyFlat(flatDst, flatSrc any) {
	reflect.Copy(reflect.ValueOf(flatDst), reflect.ValueOf(flatSrc))
}

// bufferIssues lists the reasons why the buffer is not usable, or nil if it is fine.
func bufferIssues(buffer *Buffer) []string {
	if buffer == nil {
		return []string{"buffer was nil"}
	}
	var issues []string
	if buffer.flat == nil {
		issues = append(issues, "buffer.flat was nil")
	}
	if !buffer.shape.Ok() {
		issues = append(issues, "buffer.shape was invalid")
	}
	if !buffer.valid {
		issues = append(issues, "buffer was marked as invalid")
	}
	return issues
}

// cloneBuffer using the pool to allocate a new one.
func (b *Backend) cloneBuffer(buffer *Buffer) (*Buffer, error) {
	if issues := bufferIssues(buffer); len(issues) > 0 {
		return nil, errors.Errorf("cloneBuffer(%p): %s -- buffer was already finalized!?", buffer, strings.Join(issues, ", "))
	}
	newBuffer := b.NewBuffer(buffer.shape)
	copyFlat(newBuffer.flat, buffer.flat)
	return newBuffer, nil
}

// NewBuffer creates the buffer with a newly allocated flat space.
func (b *Backend) NewBuffer(shape shapes.Shape) *Buffer {
	buffer := b.getBuffer(shape.DType, shape.Size())
	buffer.shape = shape.Clone()
	return buffer
}

// BufferFinalize allows the client to inform backend that buffer is no longer needed and associated resources can be
// freed immediately.
//
// A finalized buffer should never be used again.
func (b *Backend) BufferFinalize(backendBuffer backends.Buffer) error {
	buffer, ok := backendBuffer.(*Buffer)
	if !ok {
		return errors.Errorf("buffer is not a %q backend buffer", BackendName)
	}
	if issues := bufferIssues(buffer); len(issues) > 0 {
		return errors.Errorf("BufferFinalize(%p): %s -- buffer was already finalized!?", buffer, strings.Join(issues, ", "))
	}
	b.putBuffer(buffer)
	return nil
}

// BufferShape returns the shape for the buffer.
func (b *Backend) BufferShape(buffer backends.Buffer) (shapes.Shape, error) {
	buf, ok := buffer.(*Buffer)
	if !ok {
		return shapes.Invalid(), errors.Errorf("buffer is not a %q backend buffer", BackendName)
	}
	return buf.shape, nil
}

// BufferToFlatData transfers the flat values of the buffer to the Go flat array.
// The slice flat must have the exact number of elements required to store the backends.Buffer shape.
func (b *Backend) BufferToFlatData(backendBuffer backends.Buffer, flat any) error {
	buf, ok := backendBuffer.(*Buffer)
	if !ok {
		return errors.Errorf("buffer is not a %q backend buffer", BackendName)
	}
	if issues := bufferIssues(buf); len(issues) > 0 {
		return errors.Errorf("BufferToFlatData(%p): %s", buf, strings.Join(issues, ", "))
	}
	flatV := reflect.ValueOf(flat)
	if flatV.Kind() != reflect.Slice || flatV.Type().Elem() != buf.shape.DType.GoType() {
		return errors.Errorf("BufferToFlatData: flat (%T) must be a slice of %s", flat, buf.shape.DType.GoType())
	}
	if flatV.Len() != buf.shape.Size() {
		return errors.Errorf("BufferToFlatData: flat has %d elements, buffer shape %s requires %d",
			flatV.Len(), buf.shape, buf.shape.Size())
	}
	copyFlat(flat, buf.flat)
	return nil
}

// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the shape DType)
// to the backend, and returns the corresponding backends.Buffer.
func (b *Backend) BufferFromFlatData(flat any, shape shapes.Shape) (backends.Buffer, error) {
	flatType := reflect.TypeOf(flat)
	if flatType == nil || flatType.Kind() != reflect.Slice {
		return nil, errors.Errorf("flat data should be a slice, got %T", flat)
	}
	if dtypes.FromGoType(flatType.Elem()) != shape.DType {
		return nil, errors.Errorf("flat data type (%s) does not match shape DType (%s)",
			flatType.Elem(), shape.DType)
	}
	if reflect.ValueOf(flat).Len() != shape.Size() {
		return nil, errors.Errorf("flat data has %d elements, shape %s requires %d",
			reflect.ValueOf(flat).Len(), shape, shape.Size())
	}
	buffer := b.NewBuffer(shape)
	copyFlat(buffer.flat, flat)
	return buffer, nil
}
