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
	"sort"
)

// NodeFinder holds the global, per-run indices over every Node the module dependency
// graph currently knows about. It is the only place nodes are created, stored, or torn
// down; ModuleDependencyGraph and the Integrator/Tracer borrow it during the scheduler's
// critical section (see build.go) rather than owning their own copies.
type NodeFinder struct {
	// byProvider maps a provider to the nodes it defines.
	byProvider map[ProviderID]map[DependencyKey]*Node

	// byKey maps a key to every node that carries it, keyed by provider; the
	// providerless ("") entry, if present, is the expectation node for that key.
	byKey map[DependencyKey]map[ProviderID]*Node

	// usesByDef maps a definition's key to the nodes that record a use of it. Entries
	// are kept insertion-ordered per def key; orderedUses re-sorts on read by
	// (Provider, Key) so callers observe a deterministic traversal order regardless of
	// integration order.
	usesByDef map[DependencyKey][]*Node
}

// NewNodeFinder returns an empty NodeFinder ready for use.
func NewNodeFinder() *NodeFinder {
	return &NodeFinder{
		byProvider: make(map[ProviderID]map[DependencyKey]*Node),
		byKey:      make(map[DependencyKey]map[ProviderID]*Node),
		usesByDef:  make(map[DependencyKey][]*Node),
	}
}

// insert adds node to every index. It fails invariant 1 ((key, provider) uniqueness)
// if a distinct node with the same identity is already present.
func (f *NodeFinder) insert(node *Node) error {
	byProvider, ok := f.byProvider[node.Provider]
	if !ok {
		byProvider = make(map[DependencyKey]*Node)
		f.byProvider[node.Provider] = byProvider
	}
	if existing, ok := byProvider[node.Key]; ok && existing != node {
		return fmt.Errorf("icplan: duplicate node for key %s provider %q", node.Key, node.Provider)
	}
	byProvider[node.Key] = node

	byProviderForKey, ok := f.byKey[node.Key]
	if !ok {
		byProviderForKey = make(map[ProviderID]*Node)
		f.byKey[node.Key] = byProviderForKey
	}
	byProviderForKey[node.Provider] = node

	return nil
}

// remove deletes node from every index, including any record of it as a user in
// usesByDef.
func (f *NodeFinder) remove(node *Node) {
	if byProvider, ok := f.byProvider[node.Provider]; ok {
		delete(byProvider, node.Key)
		if len(byProvider) == 0 {
			delete(f.byProvider, node.Provider)
		}
	}
	if byProviderForKey, ok := f.byKey[node.Key]; ok {
		delete(byProviderForKey, node.Provider)
		if len(byProviderForKey) == 0 {
			delete(f.byKey, node.Key)
		}
	}
	for def, users := range f.usesByDef {
		filtered := users[:0]
		for _, u := range users {
			if u.identity() != node.identity() {
				filtered = append(filtered, u)
			}
		}
		if len(filtered) == 0 {
			delete(f.usesByDef, def)
		} else {
			f.usesByDef[def] = filtered
		}
	}
}

// expectation returns the providerless node for key, if one has been created.
func (f *NodeFinder) expectation(key DependencyKey) (*Node, bool) {
	byProviderForKey, ok := f.byKey[key]
	if !ok {
		return nil, false
	}
	n, ok := byProviderForKey[ProviderID("")]
	return n, ok
}

// definingNode returns a node of any provider that defines key (the expectation node
// if no local source defines it), preferring an actual definition when both exist.
func (f *NodeFinder) definingNode(key DependencyKey) (*Node, bool) {
	byProviderForKey, ok := f.byKey[key]
	if !ok {
		return nil, false
	}
	for provider, n := range byProviderForKey {
		if !provider.IsExpectation() {
			return n, true
		}
	}
	return f.expectation(key)
}

// recordUse appends user to key's user list if it is not already recorded.
func (f *NodeFinder) recordUse(key DependencyKey, user *Node) {
	for _, u := range f.usesByDef[key] {
		if u.identity() == user.identity() {
			return
		}
	}
	f.usesByDef[key] = append(f.usesByDef[key], user)
}

// nodes returns every node currently defined by provider, keyed by DependencyKey.
// The returned map is a fresh copy; callers may not mutate NodeFinder through it.
func (f *NodeFinder) nodes(provider ProviderID) map[DependencyKey]*Node {
	out := make(map[DependencyKey]*Node, len(f.byProvider[provider]))
	for k, n := range f.byProvider[provider] {
		out[k] = n
	}
	return out
}

// orderedUses returns the nodes that use defKey, deterministically sorted by
// (Provider, Key) as required by the spec so traversal order is reproducible.
func (f *NodeFinder) orderedUses(defKey DependencyKey) []*Node {
	users := f.usesByDef[defKey]
	out := make([]*Node, len(users))
	copy(out, users)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

// verify checks invariants 1-3 from the spec:
//  1. at most one node per (key, provider) pair,
//  2. every node with a provider appears in that provider's byProvider index,
//  3. byKey and byProvider agree on every node's membership.
func (f *NodeFinder) verify() error {
	seen := make(map[nodeIdentity]*Node)
	for provider, byKey := range f.byProvider {
		for key, n := range byKey {
			if n.Provider != provider || n.Key != key {
				return fmt.Errorf("icplan: verify: node %v stored under mismatched (provider=%s, key=%s)", n, provider, key)
			}
			id := n.identity()
			if prior, ok := seen[id]; ok && prior != n {
				return fmt.Errorf("icplan: verify: invariant 1 violated for %v", id)
			}
			seen[id] = n

			byProviderForKey, ok := f.byKey[key]
			if !ok {
				return fmt.Errorf("icplan: verify: key %s missing from byKey index", key)
			}
			if byProviderForKey[provider] != n {
				return fmt.Errorf("icplan: verify: invariant 2/3 violated for %v", id)
			}
		}
	}
	for key, byProviderForKey := range f.byKey {
		for provider, n := range byProviderForKey {
			if n.Key != key || n.Provider != provider {
				return fmt.Errorf("icplan: verify: byKey entry mismatched for key=%s provider=%s", key, provider)
			}
			if f.byProvider[provider][key] != n {
				return fmt.Errorf("icplan: verify: invariant 3 violated for key=%s provider=%s", key, provider)
			}
		}
	}
	return nil
}

// allProviders returns every provider id currently known to the index, sorted.
func (f *NodeFinder) allProviders() []ProviderID {
	out := make([]ProviderID, 0, len(f.byProvider))
	for p := range f.byProvider {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
