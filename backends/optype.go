package backends

import "strconv"

// OpType is an enum of all generic operations that can be supported by a Backend.Builder.
type OpType int

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	OpTypeAbs
	OpTypeAdd
	OpTypeBroadcastInDim
	OpTypeCeil
	OpTypeClamp
	OpTypeConcatenate
	OpTypeConj
	OpTypeConvertDType
	OpTypeCumulative
	OpTypeDiv
	OpTypeEqual
	OpTypeFloor
	OpTypeGreaterOrEqual
	OpTypeGreaterThan
	OpTypeImag
	OpTypeIota
	OpTypeIsNaN
	OpTypeLessOrEqual
	OpTypeLessThan
	OpTypeLogicalAnd
	OpTypeLogicalNot
	OpTypeLogicalOr
	OpTypeMax
	OpTypeMin
	OpTypeMul
	OpTypeNeg
	OpTypeNotEqual
	OpTypeReal
	OpTypeReduce
	OpTypeReshape
	OpTypeSort
	OpTypeSqrt
	OpTypeSub
	OpTypeTakeAlongAxis
	OpTypeTranspose
	OpTypeWhere

	// Collective (cross-replica) operations

	OpTypeAllReduce

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

var opTypeNames = [OpTypeLast]string{
	OpTypeInvalid:        "Invalid",
	OpTypeParameter:      "Parameter",
	OpTypeConstant:       "Constant",
	OpTypeAbs:            "Abs",
	OpTypeAdd:            "Add",
	OpTypeBroadcastInDim: "BroadcastInDim",
	OpTypeCeil:           "Ceil",
	OpTypeClamp:          "Clamp",
	OpTypeConcatenate:    "Concatenate",
	OpTypeConj:           "Conj",
	OpTypeConvertDType:   "ConvertDType",
	OpTypeCumulative:     "Cumulative",
	OpTypeDiv:            "Div",
	OpTypeEqual:          "Equal",
	OpTypeFloor:          "Floor",
	OpTypeGreaterOrEqual: "GreaterOrEqual",
	OpTypeGreaterThan:    "GreaterThan",
	OpTypeImag:           "Imag",
	OpTypeIota:           "Iota",
	OpTypeIsNaN:          "IsNaN",
	OpTypeLessOrEqual:    "LessOrEqual",
	OpTypeLessThan:       "LessThan",
	OpTypeLogicalAnd:     "LogicalAnd",
	OpTypeLogicalNot:     "LogicalNot",
	OpTypeLogicalOr:      "LogicalOr",
	OpTypeMax:            "Max",
	OpTypeMin:            "Min",
	OpTypeMul:            "Mul",
	OpTypeNeg:            "Neg",
	OpTypeNotEqual:       "NotEqual",
	OpTypeReal:           "Real",
	OpTypeReduce:         "Reduce",
	OpTypeReshape:        "Reshape",
	OpTypeSort:           "Sort",
	OpTypeSqrt:           "Sqrt",
	OpTypeSub:            "Sub",
	OpTypeTakeAlongAxis:  "TakeAlongAxis",
	OpTypeTranspose:      "Transpose",
	OpTypeWhere:          "Where",
	OpTypeAllReduce:      "AllReduce",
}

// String implements fmt.Stringer.
func (opType OpType) String() string {
	if opType < 0 || opType >= OpTypeLast {
		return "OpType(" + strconv.Itoa(int(opType)) + ")"
	}
	return opTypeNames[opType]
}

// OpTypeValues returns all valid OpType values, excluding OpTypeInvalid and OpTypeLast.
func OpTypeValues() []OpType {
	values := make([]OpType, 0, int(OpTypeLast)-1)
	for opType := OpTypeInvalid + 1; opType < OpTypeLast; opType++ {
		values = append(values, opType)
	}
	return values
}
