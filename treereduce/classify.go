package treereduce

import (
	"slices"

	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/internal/optypes"
)

type orientation int

const (
	// rowReduction reduces the minor-most (fastest-varying) axis.
	rowReduction orientation = iota

	// columnReduction reduces a strided run of axes, keeping the minor-most.
	columnReduction
)

// analysis is the classifier's decision record, consumed by the emit
// functions. It is a pure function of the reduce instruction's shapes, its
// immediate graph neighborhood and the options; computing it has no side
// effects on the graph.
type analysis struct {
	orient orientation

	// dims are the (shared) dimensions of the reduced operands, axes the
	// sorted reduced axes.
	dims []int
	axes []int

	// runStart..runEnd is the contiguous run of reduced axes, inclusive. For
	// row reductions it ends at the minor-most axis; a separately reduced
	// leading batch axis is not part of it.
	runStart, runEnd int

	// n is the product of the run extents.
	n int

	batched     bool
	batchExtent int
	batchFits   bool

	// batchOnly: the run itself is small enough for one stage, only the batch
	// axis overflows; split into run-stage plus batch-stage, no tiling.
	batchOnly bool

	tile TileSpec
}

// classify decides whether and how a reduce instruction should be split. A
// non-empty skip reason means the instruction is left unchanged; that is a
// safe no-op, not an error.
func classify(comp *hlo.Computation, reduce *hlo.Instruction, opts Options) (a analysis, skip string) {
	operands := reduce.Operands()
	numReductions := len(operands) / 2
	for _, op := range operands[:numReductions] {
		if !op.Shape().HasDefaultLayout() {
			return a, "an operand has a non-default layout, splitting its axes would move data"
		}
	}

	a.dims = operands[0].Shape().Dimensions
	a.axes = slices.Clone(reduce.Axes())
	slices.Sort(a.axes)
	rank := len(a.dims)

	if a.axes[len(a.axes)-1] == rank-1 {
		a.orient = rowReduction
		a.runEnd = rank - 1
		a.runStart = rank - 1
		i := len(a.axes) - 1
		for i > 0 && a.axes[i-1] == a.axes[i]-1 {
			i--
			a.runStart--
		}
		rest := a.axes[:i]
		switch {
		case len(rest) == 0:
			// No batch axis.
		case len(rest) == 1 && rest[0] == 0 && a.runStart > 1:
			a.batched = true
			a.batchExtent = a.dims[0]
		default:
			return a, "reduced axes do not form a trailing run plus an optional leading batch axis"
		}
	} else {
		a.orient = columnReduction
		for i := 1; i < len(a.axes); i++ {
			if a.axes[i] != a.axes[i-1]+1 {
				return a, "reduced axes are not contiguous"
			}
		}
		a.runStart = a.axes[0]
		a.runEnd = a.axes[len(a.axes)-1]
	}

	a.n = 1
	for axis := a.runStart; axis <= a.runEnd; axis++ {
		a.n *= a.dims[axis]
	}
	if a.n == 0 {
		return a, "reduction over an empty extent"
	}

	a.batchFits = !a.batched || a.batchExtent <= opts.BatchedBound
	raceFree := a.n <= opts.RaceFreeBound && a.batchFits
	if raceFree {
		if !opts.DeterministicReductions {
			return a, "a single stage is race free at this size"
		}
		// A race free stage that reads from or feeds another reduction stage
		// is already part of a tree; splitting it again would cascade on every
		// run. Only a reduce that would race on its own gets the forced split.
		if partOfReductionTree(comp, reduce) {
			return a, "already a race free stage of a reduction tree"
		}
	}
	a.batchOnly = a.batched && a.n <= opts.RaceFreeBound
	return a, ""
}

// partOfReductionTree reports whether the reduce reads its data from, or feeds
// its result to, another reduction stage, looking through get-tuple-element
// unpacking of variadic stages.
func partOfReductionTree(comp *hlo.Computation, reduce *hlo.Instruction) bool {
	operands := reduce.Operands()
	for _, op := range operands[:len(operands)/2] {
		if isReductionStageValue(op) {
			return true
		}
	}
	for _, user := range comp.UsersOf(reduce) {
		if user.OpType() == optypes.Reduce {
			return true
		}
		if user.OpType() == optypes.GetTupleElement {
			for _, unpacked := range comp.UsersOf(user) {
				if unpacked.OpType() == optypes.Reduce {
					return true
				}
			}
		}
	}
	return false
}

func isReductionStageValue(op *hlo.Instruction) bool {
	switch op.OpType() {
	case optypes.Reduce, optypes.Fusion:
		return true
	case optypes.GetTupleElement:
		return isReductionStageValue(op.Operands()[0])
	}
	return false
}
