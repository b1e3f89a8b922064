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

// ProviderID names the per-source summary file that defines a node. The zero value
// ("") means "no provider": the node is an expectation, a reference to a declaration
// that no known local source defines.
type ProviderID string

// IsExpectation reports whether the id names no provider at all.
func (p ProviderID) IsExpectation() bool { return p == "" }

// Fingerprint is an optional content hash of a declaration. Equal fingerprints imply
// no semantic change; a nil Fingerprint means the declaration carries none (e.g. an
// expectation node, or a source format that doesn't emit one for this kind of key).
type Fingerprint = *string

// NewFingerprint is a small convenience so call sites don't need to take the address
// of a local variable just to populate a Node.
func NewFingerprint(s string) Fingerprint {
	return &s
}

func fingerprintsEqual(a, b Fingerprint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Node is (key, fingerprint, provider): an addressable vertex in the module
// dependency graph. Two nodes are equal iff their Key and Provider are equal;
// Fingerprint plays no part in node identity, only in change detection.
type Node struct {
	Key         DependencyKey
	Fingerprint Fingerprint
	Provider    ProviderID
}

// nodeIdentity is the (key, provider) pair invariant 1 in the spec keys uniqueness on.
type nodeIdentity struct {
	Key      DependencyKey
	Provider ProviderID
}

func (n *Node) identity() nodeIdentity {
	return nodeIdentity{Key: n.Key, Provider: n.Provider}
}

// IsExpectation reports whether this node merely records a reference with no local
// definition.
func (n *Node) IsExpectation() bool { return n.Provider.IsExpectation() }
