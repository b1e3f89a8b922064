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

// ModuleDependencyGraph owns the node finder, the integrator, and the tracer, and
// exposes the reachability queries the scheduler needs (spec.md §2, "Module dependency
// graph"). It is not safe for concurrent use; callers serialize access to it themselves
// (see SecondWaveScheduler, which is the sole owner during a build — spec.md §5).
type ModuleDependencyGraph struct {
	finder     *NodeFinder
	integrator *Integrator
	tracer     *Tracer

	// sourceForProvider and providerForSource implement the bidirectional
	// source<->provider mapping from spec.md §3 (invariant 3).
	sourceForProvider map[ProviderID]string
	providerForSource map[string]ProviderID

	opts GraphOptions
}

// GraphOptions are the debug-only knobs spec.md §6 names: emitDotAfterIntegration and
// verifyAfterIntegration.
type GraphOptions struct {
	EmitDotAfterIntegration bool
	VerifyAfterIntegration  bool
	DotWriter               func(dot string)
}

// NewModuleDependencyGraph returns an empty graph.
func NewModuleDependencyGraph(opts GraphOptions) *ModuleDependencyGraph {
	finder := NewNodeFinder()
	return &ModuleDependencyGraph{
		finder:            finder,
		integrator:        NewIntegrator(finder),
		tracer:            NewTracer(finder),
		sourceForProvider: make(map[ProviderID]string),
		providerForSource: make(map[string]ProviderID),
		opts:              opts,
	}
}

// BindSource records the source<->provider mapping for an input before its summary is
// ever integrated (spec.md §3 invariant 3). Integrate does not check the binding: nodes
// of a provider that was never bound are integrated, but the query methods map them to
// no source path.
func (g *ModuleDependencyGraph) BindSource(source string, provider ProviderID) error {
	if existing, ok := g.providerForSource[source]; ok && existing != provider {
		return fmt.Errorf("icplan: source %q already bound to provider %q", source, existing)
	}
	if existing, ok := g.sourceForProvider[provider]; ok && existing != source {
		return fmt.Errorf("icplan: provider %q already bound to source %q", provider, existing)
	}
	g.sourceForProvider[provider] = source
	g.providerForSource[source] = provider
	return nil
}

// SourceForProvider returns the source path a provider belongs to.
func (g *ModuleDependencyGraph) SourceForProvider(p ProviderID) (string, bool) {
	s, ok := g.sourceForProvider[p]
	return s, ok
}

// ProviderForSource returns the provider id bound to a source path.
func (g *ModuleDependencyGraph) ProviderForSource(source string) (ProviderID, bool) {
	p, ok := g.providerForSource[source]
	return p, ok
}

// Integrate merges summary into the graph for provider and clears the traced bit on
// every node invalidated by the change (spec.md §4.2 step 5). It returns Δ, the raw
// integrator output, so callers can feed it straight to TraceChanged.
func (g *ModuleDependencyGraph) Integrate(provider ProviderID, summary *ParsedSummary) ([]ChangedNode, error) {
	delta, err := g.integrator.Integrate(provider, summary)
	if err != nil {
		return nil, err
	}
	g.tracer.clear(g.integrator.lastCleared)
	if g.opts.VerifyAfterIntegration {
		if err := g.finder.verify(); err != nil {
			return nil, fmt.Errorf("icplan: invariant violated after integrating %q: %w", provider, err)
		}
	}
	if g.opts.EmitDotAfterIntegration && g.opts.DotWriter != nil {
		g.opts.DotWriter(g.dotSnapshot())
	}
	return delta, nil
}

// defNodesOf extracts the *Node for every entry in delta. Every entry is a definition
// of the integrated provider (added, modified, or removed); a removed node is gone from
// the finder's indices, but the users recorded for its key are not, so tracing from it
// still reaches every source that used the dropped definition.
func defNodesOf(delta []ChangedNode) []*Node {
	defs := make([]*Node, 0, len(delta))
	for _, c := range delta {
		defs = append(defs, c.Node)
	}
	return defs
}

// TraceChanged runs the tracer over every added, modified, or removed node in delta and
// returns the providers (source files) that must (re)compile as a result (spec.md §4.3).
func (g *ModuleDependencyGraph) TraceChanged(delta []ChangedNode) []ProviderID {
	return g.tracer.TraceToProviders(defNodesOf(delta))
}

// FindDependentSourceFiles traces from the interface-aspect and implementation-aspect
// nodes a source defines and returns the providers reached, translated to source paths.
// The source itself is not part of the result. This is the
// "findDependentSourceFiles(of: input)" operation named throughout spec.md §4.5/§4.6.
func (g *ModuleDependencyGraph) FindDependentSourceFiles(provider ProviderID) []string {
	defs := g.finder.nodes(provider)
	nodes := make([]*Node, 0, len(defs))
	for _, n := range defs {
		nodes = append(nodes, n)
	}
	providers := g.tracer.TraceToProviders(nodes)
	return g.providersToSources(providers, provider)
}

// TraceExternalDependency traces from the interface-aspect node for an external
// dependency's path and returns the affected source paths (spec.md §4.5 item 2).
func (g *ModuleDependencyGraph) TraceExternalDependency(path string) []string {
	key := DependencyKey{Aspect: AspectInterface, Designator: ExternalDepend(path)}
	n, ok := g.finder.definingNode(key)
	if !ok {
		return nil
	}
	providers := g.tracer.TraceToProviders([]*Node{n})
	return g.providersToSources(providers, "")
}

// providersToSources maps providers to their bound source paths, leaving out exclude
// and any provider that is not bound.
func (g *ModuleDependencyGraph) providersToSources(providers []ProviderID, exclude ProviderID) []string {
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		if p == exclude {
			continue
		}
		if s, ok := g.sourceForProvider[p]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ReadSummaryAndIntegrate is a convenience wrapper combining a SummaryReader read with
// Integrate, used by the second-wave scheduler (build.go) when a compile finishes.
func (g *ModuleDependencyGraph) ReadSummaryAndIntegrate(reader SummaryReader, provider ProviderID) ([]ChangedNode, error) {
	summary, err := reader.ReadSummary(provider)
	if err != nil {
		return nil, &MalformedSummary{Provider: provider, Reason: err.Error()}
	}
	return g.Integrate(provider, summary)
}

// FindSourcesToCompileAfterCompiling re-integrates provider's freshly emitted summary,
// traces the changed nodes, and maps the resulting providers back to source paths
// other than provider's own source, which has just compiled (spec.md §4.6 step 3). It
// is the single entry point the second-wave scheduler calls per finished job's primary
// inputs.
func (g *ModuleDependencyGraph) FindSourcesToCompileAfterCompiling(reader SummaryReader, provider ProviderID) ([]string, error) {
	delta, err := g.ReadSummaryAndIntegrate(reader, provider)
	if err != nil {
		return nil, err
	}
	providers := g.TraceChanged(delta)
	return g.providersToSources(providers, provider), nil
}

// Verify exposes NodeFinder.verify for callers (and tests) that want to check
// invariants 1-3 outside of the VerifyAfterIntegration hook.
func (g *ModuleDependencyGraph) Verify() error {
	return g.finder.verify()
}
