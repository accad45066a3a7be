// Package simplego implements a simple, and not very fast, but very portable backend.
//
// It interprets the computation graph in pure Go: values are widened to one of bool, int64, uint64,
// float64 or complex128 for computation, and narrowed back to the buffer's dtype.
//
// It runs a single replica, so collective operations (AllReduce) reduce over one participant.
package simplego

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/internal/workerspool"
	"github.com/pkg/errors"
)

// BackendName to be used in NPREDUCE_BACKEND to specify this backend.
const BackendName = "go"

// Registers New() as the constructor for the "go" backend.
func init() {
	backends.Register(BackendName, New)
}

// New constructs a new SimpleGo Backend.
//
// The config is a comma-separated list of options:
//
//   - "ops_sequential": execute the ops of a graph sequentially.
//   - "ops_parallel": execute independent ops of a graph in parallel.
//
// The default is to decide dynamically: ops are executed in parallel only if there is a single
// computation being executed at the time.
func New(config string) (backends.Backend, error) {
	b := newBackend()
	for _, option := range strings.Split(config, ",") {
		switch strings.TrimSpace(option) {
		case "":
		case "ops_sequential":
			b.opsExecutionType = opsExecutionSequential
		case "ops_parallel":
			b.opsExecutionType = opsExecutionParallel
		default:
			return nil, errors.Errorf("unknown configuration option %q for backend %q, valid options are \"ops_sequential\" and \"ops_parallel\"",
				option, BackendName)
		}
	}
	return b, nil
}

func newBackend() *Backend {
	return &Backend{workers: workerspool.New()}
}

// Backend implements the backends.Backend interface.
type Backend struct {
	// bufferPools are a map to pools of buffers that can be reused.
	// The underlying type is map[bufferPoolKey]*sync.Pool.
	bufferPools sync.Map

	workers           *workerspool.Pool
	opsExecutionType  opsExecutionType
	numLiveExecutions atomic.Int32
}

// Compile-time check that simplego.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return BackendName
}

// String implement fmt.Stringer.
func (b *Backend) String() string { return BackendName }

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Simple Go Portable Backend"
}

// NumReplicas returns 1: SimpleGo runs a single replica.
func (b *Backend) NumReplicas() int {
	return 1
}

// Capabilities returns information about what is supported by this backend.
func (b *Backend) Capabilities() backends.Capabilities {
	return Capabilities
}

// Builder creates a new builder used to define a new named computation.
func (b *Backend) Builder(name string) backends.Builder {
	return &Builder{
		backend: b,
		name:    name,
	}
}

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.bufferPools.Clear()
}
