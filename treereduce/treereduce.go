// Package treereduce splits large reductions into a tree of smaller ones.
//
// A reduction over a big extent cannot be computed by hardware with bounded
// per-kernel parallelism in one pass without racing on the accumulator. The
// pass rewrites such a reduce into two stages (three for oversized batch
// dimensions): the reduced extent is padded with the reduction's own identity
// value to a near-square outer x inner factorization, reinterpreted in place
// as an extra tile axis, and reduced one tile axis per stage, reusing the
// original combiner computation unchanged at every stage. The inner stage is
// then packaged with its pad and bitcast into an input-style fusion so the
// padded array is never materialized.
//
// The output shape and its minor-to-major layout are preserved exactly; the
// numeric result is preserved up to floating-point reassociation.
package treereduce

import (
	"slices"

	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/internal/optypes"
	"github.com/gomlx/hlo/internal/utils"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options configures the rewrite policy. The zero value of a bound means its
// default.
type Options struct {
	// RaceFreeBound is the largest reduced extent a single reduction stage
	// handles without racing accumulators. Reductions at or under it are left
	// alone unless DeterministicReductions is set. Default 4096.
	RaceFreeBound int

	// BatchedBound is the largest batch extent that can be folded into the
	// first reduction stage. A larger batch gets its own stage. Default 8.
	BatchedBound int

	// MinTileWidth is the smallest useful tile factor; extents whose square
	// root is under it are never split. Default 2.
	MinTileWidth int

	// DeterministicReductions forces the split even for extents under
	// RaceFreeBound: a fixed tree shape makes the accumulation order
	// compile-time determined and the output bit-reproducible across runs.
	DeterministicReductions bool

	// DisableFusion keeps the pad, bitcast and inner reduce as separate
	// instructions instead of grouping them into a fusion. The grouping is an
	// optimization only; the unfused graph is equally correct.
	DisableFusion bool
}

// DefaultOptions returns the default rewrite policy.
func DefaultOptions() Options {
	return Options{
		RaceFreeBound: 4096,
		BatchedBound:  8,
		MinTileWidth:  2,
	}
}

// Rewriter is the pass object. It is stateless across runs and safe to reuse.
type Rewriter struct {
	opts Options
}

// New creates a Rewriter, filling unset Options bounds with their defaults.
func New(opts Options) *Rewriter {
	def := DefaultOptions()
	if opts.RaceFreeBound <= 0 {
		opts.RaceFreeBound = def.RaceFreeBound
	}
	if opts.BatchedBound <= 0 {
		opts.BatchedBound = def.BatchedBound
	}
	if opts.MinTileWidth <= 0 {
		opts.MinTileWidth = def.MinTileWidth
	}
	return &Rewriter{opts: opts}
}

// Run rewrites every eligible reduce instruction of the module and reports
// whether anything changed. Combiner and fusion body computations are never
// rewritten, only the computations that call them.
func (r *Rewriter) Run(m *hlo.Module) (bool, error) {
	called := utils.MakeSet[*hlo.Computation]()
	for _, c := range m.Computations() {
		for _, instr := range c.Instructions() {
			if sub := instr.CalledComputation(); sub != nil {
				called.Insert(sub)
			}
		}
	}

	changed := false
	for _, c := range m.Computations() {
		if called.Has(c) {
			continue
		}
		// The rewrite appends new instructions; iterate over a snapshot.
		for _, instr := range slices.Clone(c.Instructions()) {
			if instr.OpType() != optypes.Reduce {
				continue
			}
			if c.Root() != instr && len(c.UsersOf(instr)) == 0 {
				continue
			}
			rewritten, err := r.rewriteReduce(c, instr)
			if err != nil {
				return changed, err
			}
			changed = changed || rewritten
		}
	}
	return changed, nil
}

// rewriteReduce splits one reduce instruction, splices the replacement in and
// optionally fuses the inner stage. Returns whether the graph changed.
func (r *Rewriter) rewriteReduce(comp *hlo.Computation, reduce *hlo.Instruction) (bool, error) {
	a, skip := classify(comp, reduce, r.opts)
	if skip != "" {
		klog.V(2).Infof("leaving %s in %s unchanged: %s", reduce, comp.Name(), skip)
		return false, nil
	}
	if !a.batchOnly {
		a.tile = SplitExtent(a.n, r.opts.MinTileWidth)
		if a.tile.Outer <= 1 {
			klog.V(2).Infof("leaving %s in %s unchanged: extent %d is too small to split",
				reduce, comp.Name(), a.n)
			return false, nil
		}
	}

	origShape := reduce.Shape().Clone()
	var final, inner *hlo.Instruction
	var err error
	if a.batchOnly {
		klog.V(1).Infof("splitting %s: batch %d over %d reduced elements gets its own stage",
			reduce, a.batchExtent, a.n)
		final, inner, err = r.emitBatchOnly(comp, reduce, a)
	} else {
		klog.V(1).Infof("splitting %s: %d reduced elements as %dx%d tiles (%d elements of padding)",
			reduce, a.n, a.tile.Outer, a.tile.Inner, a.tile.PaddedTotal-a.n)
		final, inner, err = r.emitTiled(comp, reduce, a)
	}
	if err != nil {
		return false, errors.WithMessagef(err, "while rewriting %s in computation %q", reduce, comp.Name())
	}
	if err = final.OverrideLayout(origShape); err != nil {
		return false, err
	}
	if err = comp.ReplaceInstruction(reduce, final); err != nil {
		return false, err
	}
	if !r.opts.DisableFusion {
		if err = r.fuseInnerStage(comp, inner); err != nil {
			return false, err
		}
	}
	return true, nil
}
