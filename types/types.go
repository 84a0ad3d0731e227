// Package types holds the auxiliary enum types used by the hlo package ops.
package types

import "fmt"

// ComparisonDirection enum defined for the Compare op.
type ComparisonDirection int

const (
	CompareEQ ComparisonDirection = iota
	CompareGE
	CompareGT
	CompareLE
	CompareLT
	CompareNE
)

// ToHLO returns the HLO text representation of the comparison direction.
func (c ComparisonDirection) ToHLO() string {
	switch c {
	case CompareEQ:
		return "EQ"
	case CompareGE:
		return "GE"
	case CompareGT:
		return "GT"
	case CompareLE:
		return "LE"
	case CompareLT:
		return "LT"
	case CompareNE:
		return "NE"
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// FusionKind tags a fusion instruction with how its fused computation consumes data.
type FusionKind int

const (
	// FusionInput is a whole-array consuming fusion, ending in an aggregating
	// operation (typically a reduce) over its inputs.
	FusionInput FusionKind = iota

	// FusionLoop is an elementwise-producing fusion: every output element is
	// computed independently.
	FusionLoop
)

// ToHLO returns the HLO text representation of the fusion kind.
func (k FusionKind) ToHLO() string {
	switch k {
	case FusionInput:
		return "kInput"
	case FusionLoop:
		return "kLoop"
	}
	return fmt.Sprintf("kUnknown(%d)", k)
}
