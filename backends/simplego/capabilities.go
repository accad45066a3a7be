package simplego

import (
	"github.com/gomlx/npreduce/backends"
	"github.com/gomlx/npreduce/pkg/core/dtypes"
)

// Capabilities of the SimpleGo backends: the set of supported operations and data types.
var Capabilities = backends.Capabilities{
	Operations: map[backends.OpType]bool{
		backends.OpTypeParameter: true,
		backends.OpTypeConstant:  true,

		// Standard unary operations:
		backends.OpTypeAbs:        true,
		backends.OpTypeCeil:       true,
		backends.OpTypeConj:       true,
		backends.OpTypeFloor:      true,
		backends.OpTypeImag:       true,
		backends.OpTypeIsNaN:      true,
		backends.OpTypeLogicalNot: true,
		backends.OpTypeNeg:        true,
		backends.OpTypeReal:       true,
		backends.OpTypeSqrt:       true,

		// Standard binary operations:
		backends.OpTypeAdd:        true,
		backends.OpTypeDiv:        true,
		backends.OpTypeLogicalAnd: true,
		backends.OpTypeLogicalOr:  true,
		backends.OpTypeMax:        true,
		backends.OpTypeMin:        true,
		backends.OpTypeMul:        true,
		backends.OpTypeSub:        true,

		// Comparison operators.
		backends.OpTypeEqual:          true,
		backends.OpTypeNotEqual:       true,
		backends.OpTypeGreaterOrEqual: true,
		backends.OpTypeGreaterThan:    true,
		backends.OpTypeLessOrEqual:    true,
		backends.OpTypeLessThan:       true,

		// Other operations:
		backends.OpTypeBroadcastInDim: true,
		backends.OpTypeClamp:          true,
		backends.OpTypeConcatenate:    true,
		backends.OpTypeConvertDType:   true,
		backends.OpTypeCumulative:     true,
		backends.OpTypeIota:           true,
		backends.OpTypeReduce:         true,
		backends.OpTypeReshape:        true,
		backends.OpTypeSort:           true,
		backends.OpTypeTakeAlongAxis:  true,
		backends.OpTypeTranspose:      true,
		backends.OpTypeWhere:          true,

		// Collective operations (single replica).
		backends.OpTypeAllReduce: true,
	},

	DTypes: map[dtypes.DType]bool{
		dtypes.Bool:       true,
		dtypes.Int8:       true,
		dtypes.Int16:      true,
		dtypes.Int32:      true,
		dtypes.Int64:      true,
		dtypes.Uint8:      true,
		dtypes.Uint16:     true,
		dtypes.Uint32:     true,
		dtypes.Uint64:     true,
		dtypes.Float16:    true,
		dtypes.Float32:    true,
		dtypes.Float64:    true,
		dtypes.BFloat16:   true,
		dtypes.Complex64:  true,
		dtypes.Complex128: true,
	},
}
