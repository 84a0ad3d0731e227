// Package optypes defines OpType and lists the operations supported by the HLO graph.
package optypes

import (
	"github.com/gomlx/hlo/internal/utils"
)

// OpType is an enum of the operations an Instruction can represent.
//
// The vocabulary is intentionally small: structural operations emitted by graph
// rewrites (pad, bitcast, reshape, reduce, get-tuple-element, tuple, fusion) plus
// the scalar operations needed to build reduction combiners.
type OpType int

//go:generate go tool enumer -type=OpType optypes.go

const (
	Invalid OpType = iota
	Parameter
	Constant
	Iota

	Pad
	Bitcast
	Reshape
	Reduce
	GetTupleElement
	Tuple
	Fusion

	Add
	Multiply
	Maximum
	Minimum
	Compare
	Select

	// Last should always be kept the last, it is used as a counter/marker.
	Last
)

// ToHLO returns the HLO text name of the operation, e.g. GetTupleElement
// renders as "get-tuple-element".
func (op OpType) ToHLO() string {
	return utils.ToKebabCase(op.String())
}
