// Command hlo_treereduce builds a sample sum-reduction module, applies the
// tree reduction rewrite and prints the HLO text before and after. Useful to
// inspect what the pass does at a given size:
//
//	hlo_treereduce -dims=100,10,90000 -axes=2 -v=1
package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/hlo"
	"github.com/gomlx/hlo/treereduce"
	"github.com/gomlx/hlo/types/shapes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagDims = flag.String("dims", "50000", "Comma-separated input dimensions.")
	flagAxes = flag.String("axes", "0", "Comma-separated axes to reduce.")

	flagRaceFreeBound = flag.Int("race_free_bound", 0,
		"Largest reduced extent a single stage handles. 0 means the default.")
	flagBatchedBound = flag.Int("batched_bound", 0,
		"Largest batch extent folded into the first stage. 0 means the default.")
	flagDeterministic = flag.Bool("deterministic", false,
		"Split even race-free reductions, for bit-reproducible results.")
	flagNoFusion = flag.Bool("no_fusion", false,
		"Keep pad, bitcast and inner reduce as separate instructions.")
)

func parseInts(csv string) []int {
	parts := strings.Split(csv, ",")
	values := make([]int, len(parts))
	for i, part := range parts {
		values[i] = must.M1(strconv.Atoi(strings.TrimSpace(part)))
	}
	return values
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	dims := parseInts(*flagDims)
	axes := parseInts(*flagAxes)

	m := hlo.NewModule("sum_reduction")
	add := m.NewComputation("add")
	x := must.M1(add.Parameter("x", shapes.Make(dtypes.F32)))
	y := must.M1(add.Parameter("y", shapes.Make(dtypes.F32)))
	must.M(add.SetRoot(must.M1(add.Add(x, y))))

	entry := m.NewComputation("main")
	input := must.M1(entry.Parameter("input", shapes.Make(dtypes.F32, dims...)))
	zero := must.M1(entry.ConstantFromScalar(float32(0)))
	reduce := must.M1(entry.Reduce(
		[]*hlo.Instruction{input}, []*hlo.Instruction{zero}, add, axes...))
	must.M(entry.SetRoot(reduce))
	must.M(m.SetEntry(entry))

	fmt.Println("Before:")
	fmt.Println(string(must.M1(m.Build())))

	rewriter := treereduce.New(treereduce.Options{
		RaceFreeBound:           *flagRaceFreeBound,
		BatchedBound:            *flagBatchedBound,
		DeterministicReductions: *flagDeterministic,
		DisableFusion:           *flagNoFusion,
	})
	if !must.M1(rewriter.Run(m)) {
		fmt.Println("The reduction was left unchanged.")
		return
	}
	fmt.Println("After:")
	fmt.Println(string(must.M1(m.Build())))
}
