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

// ExternalDependency is a path to a module outside the current module, attached to the
// mtime it had when last read (spec.md §3).
type ExternalDependency struct {
	Path           string
	ModTimeSeconds int64
}

// FirstWavePlan is the output of FirstWavePlanner.Plan: the mandatory inputs, in
// input-file order, and the inputs that remain skipped (spec.md §4.5).
type FirstWavePlan struct {
	Mandatory []string
	Skipped   []string
}

// FirstWavePlanner computes the first-wave mandatory set per spec.md §4.5: the union
// of changed, externally-affected, malformed-summary, missing-output, and speculative
// inputs.
type FirstWavePlanner struct {
	Inputs                  []string // command-line order
	Detector                *ChangeDetector
	Graph                   *ModuleDependencyGraph
	ExternalDependencies    []ExternalDependency
	BuildStartTime          int64
	MalformedSummaryInputs  []string
	Outputs                 OutputFileMap
	Disk                    DiskInterface
	AlwaysRebuildDependents bool
	Remarks                 Remarks
}

// Plan runs the first-wave computation described in spec.md §4.5 and returns the
// mandatory/skipped partition, with Mandatory in input-file order (reproducible build
// output) and Skipped sorted for deterministic reporting.
func (p *FirstWavePlanner) Plan() FirstWavePlan {
	mandatory := make(map[string]bool)
	classifications := make(map[string]Classification, len(p.Inputs))

	// 1. Changed inputs.
	for _, in := range p.Inputs {
		c := p.Detector.Classify(in)
		classifications[in] = c
		if c.IsChanged() {
			mandatory[in] = true
			p.remark(in, "queuing because input changed")
		}
	}

	// 2. Externally-affected inputs.
	for _, ext := range p.ExternalDependencies {
		if ext.ModTimeSeconds < p.BuildStartTime {
			continue
		}
		for _, in := range p.Graph.TraceExternalDependency(ext.Path) {
			if !mandatory[in] {
				mandatory[in] = true
				p.remark(in, "queuing because an external dependency changed")
			}
		}
	}

	// 3. Malformed-summary inputs: conservative, rebuild so a fresh summary is emitted.
	for _, in := range p.MalformedSummaryInputs {
		if !mandatory[in] {
			mandatory[in] = true
			p.remark(in, "queuing because its dependency summary could not be read")
		}
	}

	// 4. Missing-output inputs: any declared output file missing forces a rebuild, not
	// just the object file (spec.md §4.5 item 4 names "any declared output file").
	for _, in := range p.Inputs {
		if mandatory[in] {
			continue
		}
		objectPath, ok := p.Outputs.ObjectPath(in)
		summaryPath, sok := p.Outputs.SummaryPath(in)
		if !ok || !p.Disk.Exists(objectPath) || !sok || !p.Disk.Exists(summaryPath) {
			mandatory[in] = true
			p.remark(in, "queuing because its output is missing")
		}
	}

	// 5. Speculative dependents of cascading changes, minus (1)-(4) (already excluded
	// by construction: we only add inputs not already in `mandatory`).
	for _, in := range p.Inputs {
		c := classifications[in]
		cascades := c == ClassificationChangedCascading || (c.IsChanged() && p.AlwaysRebuildDependents)
		if !cascades {
			continue
		}
		for _, dep := range p.Graph.FindDependentSourceFiles(p.providerFor(in)) {
			if !mandatory[dep] {
				mandatory[dep] = true
				p.remark(dep, "scheduling speculatively as a dependent of a cascading change")
			}
		}
	}

	var plan FirstWavePlan
	for _, in := range p.Inputs {
		if mandatory[in] {
			plan.Mandatory = append(plan.Mandatory, in)
		} else {
			plan.Skipped = append(plan.Skipped, in)
			p.remark(in, "skipping input")
		}
	}
	sort.Strings(plan.Skipped)
	return plan
}

func (p *FirstWavePlanner) providerFor(input string) ProviderID {
	if provider, ok := p.Graph.ProviderForSource(input); ok {
		return provider
	}
	if path, ok := p.Outputs.SummaryPath(input); ok {
		return ProviderID(path)
	}
	return ""
}

func (p *FirstWavePlanner) remark(input, message string) {
	if p.Remarks == nil {
		return
	}
	var ctx *CompileContext
	if outputPath, ok := p.Outputs.ObjectPath(input); ok {
		ctx = &CompileContext{OutputBasename: basename(outputPath), InputBasename: basename(input)}
	}
	p.Remarks.Incremental(message, ctx)
}
