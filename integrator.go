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

import "fmt"

// ParsedDefinition is one declaration a source defines: its key and optional content
// fingerprint. This is the parser-agnostic shape the Integrator consumes; see
// summarycodec.go for the concrete on-disk wire format it is decoded from.
type ParsedDefinition struct {
	Key         DependencyKey
	Fingerprint Fingerprint
}

// ParsedSummary is a per-source dependency summary once a collaborator has parsed it
// from disk: the declarations the source defines, and the keys it uses. By convention
// of the summary format, Definitions always includes one entry keyed
// (AspectImplementation, SourceFileProvide(path-of-this-source)) — the anchor node
// every use recorded in Uses is attributed to. The Integrator treats a summary missing
// that entry as malformed.
type ParsedSummary struct {
	Definitions []ParsedDefinition
	Uses        []DependencyKey
}

// SummaryReader is the external collaborator that turns an opaque on-disk summary file
// into a ParsedSummary. Its concrete wire format is out of scope for the core planner
// (spec.md §1); summarycodec.go provides one production implementation.
type SummaryReader interface {
	ReadSummary(provider ProviderID) (*ParsedSummary, error)
}

// MalformedSummary is returned when a per-source summary cannot be integrated: the
// caller decides whether to disable incremental mode (initial graph construction) or
// conservatively schedule every still-skipped input (second wave, build.go).
type MalformedSummary struct {
	Provider ProviderID
	Reason   string
}

func (e *MalformedSummary) Error() string {
	return fmt.Sprintf("icplan: malformed summary for provider %q: %s", e.Provider, e.Reason)
}

// anchorKey is the key every source's self-definition is filed under.
func anchorKey(provider ProviderID) DependencyKey {
	return DependencyKey{Aspect: AspectImplementation, Designator: SourceFileProvide(string(provider))}
}

// Integrator merges freshly parsed per-source summaries into a NodeFinder, producing
// the set of changed nodes for each integration (spec.md §4.2).
type Integrator struct {
	finder *NodeFinder

	// lastCleared is the set of node identities whose traced bit the owning
	// ModuleDependencyGraph must clear after the most recent Integrate call
	// (spec.md §4.2 step 5). The Integrator does not hold the traced set itself.
	lastCleared map[nodeIdentity]bool
}

// NewIntegrator constructs an Integrator bound to finder. Apart from lastCleared it holds
// no state of its own; every call to Integrate mutates finder directly, under whatever
// critical section the caller (ModuleDependencyGraph, build.go) provides.
func NewIntegrator(finder *NodeFinder) *Integrator {
	return &Integrator{finder: finder}
}

// changeKind records why a node ended up in Δ, purely for remarks/debugging; the
// tracer only cares about membership in the Δ set, not why a node is in it.
type changeKind int

const (
	changeAdded changeKind = iota
	changeModified
	changeRemoved
)

// ChangedNode is one element of Δ, the integrator's output.
type ChangedNode struct {
	Node *Node
	Kind changeKind
}

// Integrate merges summary into the graph for provider, returning Δ: the nodes added,
// modified, or removed by this integration (spec.md §4.2). It never returns a partial
// Δ alongside an error — on MalformedSummary, Δ is nil and the graph is left exactly as
// it was before the call.
func (in *Integrator) Integrate(provider ProviderID, summary *ParsedSummary) ([]ChangedNode, error) {
	if summary == nil {
		return nil, &MalformedSummary{Provider: provider, Reason: "nil summary"}
	}
	anchor := anchorKey(provider)
	hasAnchor := false
	seenCurrent := make(map[DependencyKey]bool, len(summary.Definitions))
	for _, def := range summary.Definitions {
		if def.Key.Designator.Kind == DesignatorSourceFileProvide && def.Key == anchor {
			hasAnchor = true
		}
		if seenCurrent[def.Key] {
			return nil, &MalformedSummary{Provider: provider, Reason: fmt.Sprintf("duplicate definition key %s", def.Key)}
		}
		seenCurrent[def.Key] = true
	}
	if !hasAnchor {
		return nil, &MalformedSummary{Provider: provider, Reason: "missing self-provides (sourceFileProvide) definition"}
	}

	prior := in.finder.nodes(provider)
	var delta []ChangedNode
	var changedDefKeys []DependencyKey

	for _, def := range summary.Definitions {
		if existing, ok := prior[def.Key]; ok {
			if fingerprintsEqual(existing.Fingerprint, def.Fingerprint) {
				continue // unchanged
			}
			existing.Fingerprint = def.Fingerprint
			delta = append(delta, ChangedNode{Node: existing, Kind: changeModified})
			changedDefKeys = append(changedDefKeys, def.Key)
			continue
		}
		n := &Node{Key: def.Key, Fingerprint: def.Fingerprint, Provider: provider}
		if err := in.finder.insert(n); err != nil {
			return nil, &MalformedSummary{Provider: provider, Reason: err.Error()}
		}
		delta = append(delta, ChangedNode{Node: n, Kind: changeAdded})
		changedDefKeys = append(changedDefKeys, def.Key)
	}

	for key, n := range prior {
		if !seenCurrent[key] {
			in.finder.remove(n)
			delta = append(delta, ChangedNode{Node: n, Kind: changeRemoved})
			changedDefKeys = append(changedDefKeys, key)
		}
	}

	anchorNode, ok := in.finder.nodes(provider)[anchor]
	if !ok {
		return nil, &MalformedSummary{Provider: provider, Reason: "self-provides node vanished during integration"}
	}
	for _, usedKey := range summary.Uses {
		if _, ok := in.finder.byKey[usedKey]; !ok {
			expectation := &Node{Key: usedKey, Provider: ""}
			if err := in.finder.insert(expectation); err != nil {
				return nil, &MalformedSummary{Provider: provider, Reason: err.Error()}
			}
		}
		in.finder.recordUse(usedKey, anchorNode)
	}

	// Step 5: clear the traced flag on every node that uses a changed def, so prior
	// tracing conclusions about it are re-opened (spec.md §4.2 step 5, §4.3, §9).
	cleared := make(map[nodeIdentity]bool)
	for _, key := range changedDefKeys {
		for _, user := range in.finder.orderedUses(key) {
			cleared[user.identity()] = true
		}
	}

	in.lastCleared = cleared
	return delta, nil
}
