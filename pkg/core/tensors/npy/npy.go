// Package npy reads and writes tensors in NumPy's .npy and .npz file formats.
//
// Arrays stored in Fortran order are converted to row-major order, and big-endian data is byte-swapped
// on read. Writing always produces little-endian, row-major, version 1.0 files.
package npy

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/gomlx/npreduce/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const magic = "\x93NUMPY"

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// header holds the parsed contents of a .npy header dictionary.
type header struct {
	descr        string
	fortranOrder bool
	dimensions   []int
}

// ReadFile reads a .npy file.
func ReadFile(filePath string) (*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npy file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	return Read(file)
}

// Read a .npy encoded tensor from r.
func Read(r io.Reader) (*tensors.Tensor, error) {
	preamble := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return nil, errors.Wrap(err, "failed to read .npy preamble")
	}
	if string(preamble[:len(magic)]) != magic {
		return nil, errors.New("invalid .npy file format: magic string mismatch")
	}
	major, minor := preamble[len(magic)], preamble[len(magic)+1]

	var headerLen int
	switch {
	case major == 1:
		var l uint16
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, errors.Wrap(err, "failed to read .npy header length")
		}
		headerLen = int(l)
	case major == 2 || major == 3:
		var l uint32
		if err := binary.Read(r, binary.LittleEndian, &l); err != nil {
			return nil, errors.Wrap(err, "failed to read .npy header length")
		}
		headerLen = int(l)
	default:
		return nil, errors.Errorf("unsupported .npy version %d.%d", major, minor)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read .npy header")
	}
	h, err := parseHeader(string(headerBytes))
	if err != nil {
		return nil, err
	}
	dtype, bigEndian, err := DTypeFromDescr(h.descr)
	if err != nil {
		return nil, err
	}
	shape := shapes.Make(dtype, h.dimensions...)
	tensor := tensors.FromShape(shape)
	tensor.MutableBytes(func(data []byte) {
		if _, err = io.ReadFull(r, data); err != nil {
			err = errors.Wrapf(err, "failed to read tensor data (expected %d bytes)", len(data))
			return
		}
		if bigEndian {
			swapBytes(data, dtype)
		}
		if h.fortranOrder && shape.Rank() > 1 {
			fortranData := slices.Clone(data)
			fortranToRowMajor(dtype.Size(), shape, fortranData, data)
		}
	})
	if err != nil {
		return nil, err
	}
	return tensor, nil
}

// parseHeader extracts descr, fortran_order and shape from the .npy header dictionary, e.g.:
// "{'descr': '<f4', 'fortran_order': False, 'shape': (1, 2, 3), }".
func parseHeader(text string) (h header, err error) {
	m := reDescr.FindStringSubmatch(text)
	if len(m) < 2 {
		return h, errors.Errorf("could not find 'descr' in .npy header %q", text)
	}
	h.descr = m[1]
	m = reFortran.FindStringSubmatch(text)
	if len(m) < 2 {
		return h, errors.Errorf("could not find 'fortran_order' in .npy header %q", text)
	}
	h.fortranOrder = m[1] == "True"
	m = reShape.FindStringSubmatch(text)
	if len(m) < 2 {
		return h, errors.Errorf("could not find 'shape' in .npy header %q", text)
	}
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			// Trailing comma, as in "(10,)", or a scalar "()".
			continue
		}
		dim, convErr := strconv.Atoi(part)
		if convErr != nil {
			return h, errors.Wrapf(convErr, "invalid dimension %q in .npy header", part)
		}
		h.dimensions = append(h.dimensions, dim)
	}
	return h, nil
}

// fortranToRowMajor copies column-major data into row-major order.
func fortranToRowMajor(elementSize int, shape shapes.Shape, fortranData, rowMajorData []byte) {
	fortranStrides := make([]int, shape.Rank())
	stride := 1
	for axis, dim := range shape.Dimensions {
		fortranStrides[axis] = stride
		stride *= dim
	}
	for flatIdx, indices := range shape.Iter() {
		src := shapes.FlatIndex(fortranStrides, indices) * elementSize
		dst := flatIdx * elementSize
		copy(rowMajorData[dst:dst+elementSize], fortranData[src:src+elementSize])
	}
}

// swapBytes converts big-endian elements in place. Complex numbers swap each component separately.
func swapBytes(data []byte, dtype dtypes.DType) {
	wordSize := dtype.Size()
	if dtype.IsComplex() {
		wordSize /= 2
	}
	if wordSize == 1 {
		return
	}
	for start := 0; start+wordSize <= len(data); start += wordSize {
		slices.Reverse(data[start : start+wordSize])
	}
}

// DTypeFromDescr converts a NumPy "descr" string (e.g. "<f4") to a DType. It also returns whether
// the data is stored as big-endian.
func DTypeFromDescr(descr string) (dtype dtypes.DType, bigEndian bool, err error) {
	code := descr
	if len(code) > 0 && strings.ContainsRune("<>=|", rune(code[0])) {
		bigEndian = code[0] == '>'
		code = code[1:]
	}
	switch code {
	case "?", "b1":
		dtype = dtypes.Bool
	case "i1":
		dtype = dtypes.Int8
	case "u1":
		dtype = dtypes.Uint8
	case "i2":
		dtype = dtypes.Int16
	case "u2":
		dtype = dtypes.Uint16
	case "i4":
		dtype = dtypes.Int32
	case "u4":
		dtype = dtypes.Uint32
	case "i8":
		dtype = dtypes.Int64
	case "u8":
		dtype = dtypes.Uint64
	case "f2":
		dtype = dtypes.Float16
	case "f4":
		dtype = dtypes.Float32
	case "f8":
		dtype = dtypes.Float64
	case "c8":
		dtype = dtypes.Complex64
	case "c16":
		dtype = dtypes.Complex128
	default:
		return dtypes.InvalidDType, false, errors.Errorf("unsupported NumPy dtype %q", descr)
	}
	return dtype, bigEndian, nil
}

// DescrFromDType returns the little-endian NumPy "descr" string for dtype.
// BFloat16 has no standard NumPy representation and returns an error.
func DescrFromDType(dtype dtypes.DType) (string, error) {
	switch dtype {
	case dtypes.Bool:
		return "|b1", nil
	case dtypes.Int8:
		return "|i1", nil
	case dtypes.Uint8:
		return "|u1", nil
	case dtypes.Int16:
		return "<i2", nil
	case dtypes.Uint16:
		return "<u2", nil
	case dtypes.Int32:
		return "<i4", nil
	case dtypes.Uint32:
		return "<u4", nil
	case dtypes.Int64:
		return "<i8", nil
	case dtypes.Uint64:
		return "<u8", nil
	case dtypes.Float16:
		return "<f2", nil
	case dtypes.Float32:
		return "<f4", nil
	case dtypes.Float64:
		return "<f8", nil
	case dtypes.Complex64:
		return "<c8", nil
	case dtypes.Complex128:
		return "<c16", nil
	}
	return "", errors.Errorf("dtype %s has no .npy representation", dtype)
}

// Write serializes the tensor to w in .npy (version 1.0) format.
func Write(w io.Writer, tensor *tensors.Tensor) error {
	shape := tensor.Shape()
	descr, err := DescrFromDType(shape.DType)
	if err != nil {
		return err
	}
	var shapeTuple string
	switch shape.Rank() {
	case 0:
		shapeTuple = "()"
	case 1:
		shapeTuple = fmt.Sprintf("(%d,)", shape.Dimensions[0])
	default:
		dims := make([]string, shape.Rank())
		for ii, dim := range shape.Dimensions {
			dims[ii] = strconv.Itoa(dim)
		}
		shapeTuple = "(" + strings.Join(dims, ", ") + ")"
	}

	// The preamble (10 bytes) plus the header must be a multiple of 64 bytes, and the header ends with '\n'.
	var headerBuf bytes.Buffer
	fmt.Fprintf(&headerBuf, "{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shapeTuple)
	for (len(magic)+4+headerBuf.Len()+1)%64 != 0 {
		headerBuf.WriteByte(' ')
	}
	headerBuf.WriteByte('\n')

	var out bytes.Buffer
	out.WriteString(magic)
	out.Write([]byte{1, 0})
	_ = binary.Write(&out, binary.LittleEndian, uint16(headerBuf.Len()))
	out.Write(headerBuf.Bytes())
	if _, err := w.Write(out.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write .npy header")
	}
	tensor.ConstBytes(func(data []byte) {
		if _, err = w.Write(data); err != nil {
			err = errors.Wrap(err, "failed to write .npy data")
		}
	})
	return err
}

// WriteFile serializes the tensor to a .npy file.
func WriteFile(filePath string, tensor *tensors.Tensor) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create .npy file %q", filePath)
	}
	if err = Write(file, tensor); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrapf(file.Close(), "failed to close .npy file %q", filePath)
}

// ReadNpzFile reads all arrays stored in a .npz file, keyed by their names.
func ReadNpzFile(filePath string) (map[string]*tensors.Tensor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open .npz file %q", filePath)
	}
	defer func() { _ = file.Close() }()
	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat .npz file %q", filePath)
	}
	return ReadNpz(file, info.Size())
}

// ReadNpz reads all arrays from a .npz (zip) archive. Entries that are not .npy files are skipped.
func ReadNpz(r io.ReaderAt, size int64) (map[string]*tensors.Tensor, error) {
	zipReader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open .npz archive")
	}
	results := make(map[string]*tensors.Tensor)
	for _, f := range zipReader.File {
		cleanPath := path.Clean(f.Name)
		if path.IsAbs(cleanPath) || strings.HasPrefix(cleanPath, "..") {
			return nil, errors.Errorf("invalid path %q in .npz archive", f.Name)
		}
		if !strings.HasSuffix(f.Name, ".npy") {
			klog.V(1).Infof("skipping non-.npy entry %q in .npz archive", f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %q within .npz", f.Name)
		}
		tensor, err := Read(rc)
		_ = rc.Close()
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to read array %q from .npz", f.Name)
		}
		results[strings.TrimSuffix(f.Name, ".npy")] = tensor
	}
	return results, nil
}

// WriteNpz writes the tensors as a .npz archive, with entries sorted by name.
func WriteNpz(w io.Writer, arrays map[string]*tensors.Tensor) error {
	zipWriter := zip.NewWriter(w)
	for _, name := range slices.Sorted(maps.Keys(arrays)) {
		entry, err := zipWriter.Create(name + ".npy")
		if err != nil {
			return errors.Wrapf(err, "failed to create %q in .npz archive", name)
		}
		if err := Write(entry, arrays[name]); err != nil {
			return errors.WithMessagef(err, "failed to write array %q to .npz archive", name)
		}
	}
	return errors.Wrap(zipWriter.Close(), "failed to close .npz archive")
}
