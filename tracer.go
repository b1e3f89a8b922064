// Copyright 2011 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package icplan

import "sort"

// Tracer computes, from a set of changed nodes, the transitive set of users that were
// not previously traced in this build (spec.md §4.3). The traced set is monotonic
// within a build except where the Integrator selectively clears it (integrator.go's
// lastCleared, applied in ModuleDependencyGraph.Integrate).
type Tracer struct {
	finder *NodeFinder
	traced map[nodeIdentity]bool
}

// NewTracer returns a Tracer with an empty traced set.
func NewTracer(finder *NodeFinder) *Tracer {
	return &Tracer{finder: finder, traced: make(map[nodeIdentity]bool)}
}

// clear removes ids from the traced set, re-opening them for re-tracing. Called by
// ModuleDependencyGraph after an integration whose Δ invalidates prior conclusions.
func (t *Tracer) clear(ids map[nodeIdentity]bool) {
	for id := range ids {
		delete(t.traced, id)
	}
}

// isTraced reports whether a node has already been visited in this build.
func (t *Tracer) isTraced(n *Node) bool {
	return t.traced[n.identity()]
}

// Trace runs the breadth-first, declared-order traversal from defs and returns
// every node reached that was not already traced, marking each as traced along the way.
// Determinism here is a correctness requirement (spec.md §4.3): it is what makes
// scheduling order reproducible for humans reading build output.
func (t *Tracer) Trace(defs []*Node) []*Node {
	var result []*Node
	work := append([]*Node(nil), defs...)
	for len(work) > 0 {
		n := work[0]
		work = work[1:]
		if t.isTraced(n) {
			continue
		}
		t.traced[n.identity()] = true
		result = append(result, n)
		work = append(work, t.finder.orderedUses(n.Key)...)
	}
	return result
}

// TraceToProviders runs Trace and reduces the result to the set of distinct, non-empty
// providers it touched — the sources that must (re)compile, per spec.md §4.3's closing
// paragraph ("the tracer's output is the set of providers referenced by result").
func (t *Tracer) TraceToProviders(defs []*Node) []ProviderID {
	traced := t.Trace(defs)
	seen := make(map[ProviderID]bool)
	for _, n := range traced {
		if !n.Provider.IsExpectation() {
			seen[n.Provider] = true
		}
	}
	out := make([]ProviderID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
