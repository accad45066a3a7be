// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package notimplemented

import (
	"testing"

	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
	"github.com/gomlx/npreduce/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	backend := &Backend{}
	builder := backend.Builder("test")
	_, err := builder.Parameter("x", shapes.Make(dtypes.Float32, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, NotImplementedError))
	assert.Contains(t, err.Error(), "Parameter")

	custom := Builder{ErrFn: func(op backends.OpType) error { return errors.Errorf("no %s here", op) }}
	_, err = custom.Sort(nil, 0)
	require.ErrorContains(t, err, "no Sort here")
	assert.False(t, backend.Capabilities().Supports(backends.OpTypeAdd))
}
