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

// Aspect marks whether a declaration's dependency key is externally visible.
// Interface-aspect changes affect every user of the declaration; implementation-aspect
// changes only affect the source that defines the declaration.
type Aspect int

const (
	AspectInterface Aspect = iota
	AspectImplementation
)

func (a Aspect) String() string {
	switch a {
	case AspectInterface:
		return "interface"
	case AspectImplementation:
		return "implementation"
	default:
		return fmt.Sprintf("Aspect(%d)", int(a))
	}
}

// DesignatorKind is the tag of the Designator sum type. Order matters: designators
// compare by kind first and only then by content, so keys stay totally ordered and
// their ordering stays stable across releases.
type DesignatorKind int

const (
	DesignatorTopLevel DesignatorKind = iota
	DesignatorNominal
	DesignatorPotentialMember
	DesignatorMember
	DesignatorDynamicLookup
	DesignatorExternalDepend
	DesignatorSourceFileProvide
)

func (k DesignatorKind) String() string {
	switch k {
	case DesignatorTopLevel:
		return "topLevel"
	case DesignatorNominal:
		return "nominal"
	case DesignatorPotentialMember:
		return "potentialMember"
	case DesignatorMember:
		return "member"
	case DesignatorDynamicLookup:
		return "dynamicLookup"
	case DesignatorExternalDepend:
		return "externalDepend"
	case DesignatorSourceFileProvide:
		return "sourceFileProvide"
	default:
		return fmt.Sprintf("DesignatorKind(%d)", int(k))
	}
}

// Designator is the identity portion of a DependencyKey. It is a tagged union over
// the seven variants named in the spec, modeled as a plain comparable struct (not a
// class hierarchy) so it can be used directly as a Go map key and compared with ==.
//
// Only the fields relevant to Kind are populated; callers should use the constructor
// functions below rather than building a Designator by hand.
type Designator struct {
	Kind    DesignatorKind
	Context string // nominal, potentialMember, member
	Name    string // topLevel, member, dynamicLookup
	Path    string // externalDepend, sourceFileProvide
}

func TopLevel(name string) Designator { return Designator{Kind: DesignatorTopLevel, Name: name} }
func Nominal(context string) Designator {
	return Designator{Kind: DesignatorNominal, Context: context}
}
func PotentialMember(context string) Designator {
	return Designator{Kind: DesignatorPotentialMember, Context: context}
}
func Member(context, name string) Designator {
	return Designator{Kind: DesignatorMember, Context: context, Name: name}
}
func DynamicLookup(name string) Designator {
	return Designator{Kind: DesignatorDynamicLookup, Name: name}
}
func ExternalDepend(path string) Designator {
	return Designator{Kind: DesignatorExternalDepend, Path: path}
}
func SourceFileProvide(path string) Designator {
	return Designator{Kind: DesignatorSourceFileProvide, Path: path}
}

func (d Designator) String() string {
	switch d.Kind {
	case DesignatorTopLevel, DesignatorDynamicLookup:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Name)
	case DesignatorNominal, DesignatorPotentialMember:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Context)
	case DesignatorMember:
		return fmt.Sprintf("%s(%s.%s)", d.Kind, d.Context, d.Name)
	case DesignatorExternalDepend, DesignatorSourceFileProvide:
		return fmt.Sprintf("%s(%s)", d.Kind, d.Path)
	default:
		return fmt.Sprintf("%s()", d.Kind)
	}
}

// content is the single lexicographic payload used for tie-breaking within a
// DesignatorKind; member joins Context and Name, every other variant uses exactly one
// of Context/Name/Path.
func (d Designator) content() string {
	switch d.Kind {
	case DesignatorTopLevel, DesignatorDynamicLookup:
		return d.Name
	case DesignatorNominal, DesignatorPotentialMember:
		return d.Context
	case DesignatorMember:
		return d.Context + "\x00" + d.Name
	case DesignatorExternalDepend, DesignatorSourceFileProvide:
		return d.Path
	default:
		return ""
	}
}

// Less orders designators first by Kind then lexicographically by content,
// per the spec's "tie-break on variant index, then on lexicographic content".
func (d Designator) Less(o Designator) bool {
	if d.Kind != o.Kind {
		return d.Kind < o.Kind
	}
	return d.content() < o.content()
}

// DependencyKey is an (aspect, designator) pair: an addressable identity for a
// declaration or an external dependency. It is comparable and hashable as a plain
// Go value, and usable directly as a map key.
type DependencyKey struct {
	Aspect     Aspect
	Designator Designator
}

func (k DependencyKey) String() string {
	return fmt.Sprintf("%s:%s", k.Aspect, k.Designator)
}

// Less gives DependencyKey a total, deterministic order: aspect first, then the
// designator's own (kind, content) order.
func (k DependencyKey) Less(o DependencyKey) bool {
	if k.Aspect != o.Aspect {
		return k.Aspect < o.Aspect
	}
	return k.Designator.Less(o.Designator)
}
