// Package backends defines the interface a computation building and execution system needs to implement
// to run the reduction graphs.
//
// A backend that doesn't implement every operation can simply return a "not implemented" error for
// any op (see package notimplemented), and it would still work for computations that don't require
// those operations.
//
// Builder methods return errors. The graph package converts them to panics with stack traces
// (see package github.com/gomlx/exceptions).
package backends

import (
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Backend is the API that needs to be implemented by a compute backend.
type Backend interface {
	// Name returns the short name of the backend. E.g.: "go" for the pure Go interpreter.
	Name() string

	// Description is a longer description of the Backend that can be used to pretty-print.
	Description() string

	// NumReplicas returns the number of replicas that execute a program in lockstep. Collective
	// operations (AllReduce) reduce across replicas.
	NumReplicas() int

	// Capabilities returns the operations and dtypes supported by the backend.
	Capabilities() Capabilities

	// Builder creates a new builder used to define a new named computation.
	Builder(name string) Builder

	// DataInterface is the sub-interface that defines the API to transfer Buffer to/from the backend.
	DataInterface

	// Finalize releases all the associated resources immediately, and makes the backend invalid.
	Finalize()
}

// DataInterface is the Backend's sub-interface that defines the API to transfer Buffer to/from the backend.
type DataInterface interface {
	// BufferFinalize allows the client to inform the backend that the buffer is no longer needed and its
	// resources can be freed immediately.
	BufferFinalize(buffer Buffer) error

	// BufferShape returns the shape for the buffer.
	BufferShape(buffer Buffer) (shapes.Shape, error)

	// BufferToFlatData transfers the flat values of the buffer to the Go flat slice.
	// The slice flat must have the exact number of elements required to store the Buffer shape,
	// and its element type must match the buffer DType.
	BufferToFlatData(buffer Buffer, flat any) error

	// BufferFromFlatData transfers data from Go given as a flat slice (of the type corresponding to the
	// shape DType) to the backend. The data is copied.
	BufferFromFlatData(flat any, shape shapes.Shape) (Buffer, error)
}

// Buffer represents actual data (a tensor) stored in the backend. It is opaque to the caller.
type Buffer any

// Constructor takes a config string (optionally empty) and returns a Backend.
type Constructor func(config string) (Backend, error)

var (
	muRegistry             sync.Mutex
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration
// string that is passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List the names of the registered backends, sorted.
func List() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	names := make([]string, 0, len(registeredConstructors))
	for name := range registeredConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// ConfigEnvVar is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
const ConfigEnvVar = "NPREDUCE_BACKEND"

// New returns a new default Backend.
//
// The default is:
//
// 1. The environment variable NPREDUCE_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
func New() (Backend, error) {
	if config, found := os.LookupEnv(ConfigEnvVar); found {
		return NewWithConfig(config)
	}
	return NewWithConfig(DefaultConfig)
}

// MustNew returns a new default Backend or panics if it fails.
func MustNew() Backend {
	backend, err := New()
	if err != nil {
		panic(err)
	}
	return backend
}

// NewWithConfig takes a configuration string formatted as "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "go") and "<backend_configuration>"
// is backend specific. If the config is empty, the first registered backend is used.
func NewWithConfig(config string) (Backend, error) {
	muRegistry.Lock()
	if len(registeredConstructors) == 0 {
		muRegistry.Unlock()
		return nil, errors.New(`no registered backends -- maybe import the pure Go one with import _ "github.com/gomlx/npreduce/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := ""
	if config != "" {
		backendName = config
		if idx := strings.Index(config, ":"); idx != -1 {
			backendName = config[:idx]
			backendConfig = config[idx+1:]
		}
	}
	constructor, found := registeredConstructors[backendName]
	muRegistry.Unlock()
	if !found {
		return nil, errors.Errorf("can't find backend %q for configuration %q given, registered backends: %v",
			backendName, config, List())
	}
	klog.V(1).Infof("creating backend %q (config %q)", backendName, backendConfig)
	backend, err := constructor(backendConfig)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create backend %q", backendName)
	}
	return backend, nil
}

// ErrNotImplemented is returned (wrapped) by backends for operations they don't support.
var ErrNotImplemented = errors.New("not implemented")
