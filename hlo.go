// Package hlo holds an in-memory representation of an HLO-style computation
// graph for tensor programs, to be transformed by compiler passes before code
// generation.
//
// Among its features:
//
//   - An arena-based graph: a Module holds Computations, each Computation holds
//     its Instructions addressed by stable integer ids. Sub-computations (e.g.,
//     reduction combiners) are interned in the Module and referenced by handle,
//     never copied per use.
//   - Shape inference: it calculates the output shapes for operations,
//     including explicit minor-to-major layouts.
//   - Rendered (human-readable) HLO text output, used by tests to check the
//     structure of transformed graphs.
//   - Written purely in Go, no C/C++ external dependencies.
//
// The op vocabulary is the small structural set emitted by graph rewrites --
// pad, bitcast, reshape, reduce, get-tuple-element, tuple, fusion -- plus the
// scalar operations needed to build reduction combiners.
//
// See the treereduce package for the tree-reduction rewriting pass built on
// top of this graph.
package hlo

import "github.com/gomlx/hlo/internal/utils"

// NormalizeIdentifier converts the name of an identifier (module, computation
// or instruction name) to a valid one: only letters, digits, and underscores
// are allowed.
//
// Invalid characters are replaced with underscores.
// If the name starts with a digit, it is prefixed with an underscore.
func NormalizeIdentifier(name string) string {
	return utils.NormalizeIdentifier(name)
}
