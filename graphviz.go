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

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteDOT renders the current graph as a Graphviz digraph: one node per
// DependencyKey-node, labelled "aspect:designator", edges directed use -> def. This
// backs emitDotAfterIntegration (spec.md §4.2 step 6, §4.11 of SPEC_FULL.md).
func (g *ModuleDependencyGraph) WriteDOT(w io.Writer) error {
	_, err := io.WriteString(w, g.dotSnapshot())
	return err
}

func (g *ModuleDependencyGraph) dotSnapshot() string {
	var b strings.Builder
	b.WriteString("digraph icplan {\n")

	var allNodes []*Node
	for _, provider := range g.finder.allProviders() {
		if provider.IsExpectation() {
			continue // expectation nodes are added once, from byKey, below
		}
		for _, n := range g.finder.nodes(provider) {
			allNodes = append(allNodes, n)
		}
	}
	for key := range g.finder.byKey {
		if n, ok := g.finder.expectation(key); ok {
			allNodes = append(allNodes, n)
		}
	}
	sort.Slice(allNodes, func(i, j int) bool {
		if allNodes[i].Provider != allNodes[j].Provider {
			return allNodes[i].Provider < allNodes[j].Provider
		}
		return allNodes[i].Key.Less(allNodes[j].Key)
	})

	ids := make(map[nodeIdentity]string, len(allNodes))
	for i, n := range allNodes {
		id := fmt.Sprintf("n%d", i)
		ids[n.identity()] = id
		shape := "box"
		if n.IsExpectation() {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %s [label=%q shape=%s];\n", id, n.Key.String(), shape)
	}

	for key := range g.finder.usesByDef {
		defNode, ok := g.finder.definingNode(key)
		if !ok {
			continue
		}
		defID, ok := ids[defNode.identity()]
		if !ok {
			continue
		}
		for _, u := range g.finder.orderedUses(key) {
			userID, ok := ids[u.identity()]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s;\n", userID, defID)
		}
	}

	b.WriteString("}\n")
	return b.String()
}
