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
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// OutputKind distinguishes the two artifacts an input's compile produces.
type OutputKind int

const (
	OutputSummary OutputKind = iota
	OutputObject
)

// OutputFileMap is the external collaborator from spec.md §6: a mapping
// (inputPath, outputKind) -> outputPath. A missing map disables incremental mode
// entirely (spec.md §6, "Disabling conditions").
type OutputFileMap map[string]map[OutputKind]string

// ObjectPath returns the declared object-file path for input, if any.
func (m OutputFileMap) ObjectPath(input string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m[input][OutputObject]
	return p, ok
}

// SummaryPath returns the declared summary-file path for input, if any; by this
// module's convention that path also serves as the input's ProviderID.
func (m OutputFileMap) SummaryPath(input string) (string, bool) {
	if m == nil {
		return "", false
	}
	p, ok := m[input][OutputSummary]
	return p, ok
}

// outputFileMapFile is the on-disk JSON shape for an OutputFileMap: per input, the
// "summary" and "object" paths reserved for it.
type outputFileMapFile map[string]struct {
	Summary string `json:"summary"`
	Object  string `json:"object"`
}

// DecodeOutputFileMap reads and decodes an OutputFileMap from path using fs. This is
// the CLI's concrete, swappable answer to spec.md §6's "output-file map ... out of
// scope" collaborator.
func DecodeOutputFileMap(fs afero.Fs, path string) (OutputFileMap, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("icplan: reading output file map %q: %w", path, err)
	}
	var file outputFileMapFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("icplan: parsing output file map %q: %w", path, err)
	}
	out := make(OutputFileMap, len(file))
	for input, entry := range file {
		out[input] = map[OutputKind]string{
			OutputSummary: entry.Summary,
			OutputObject:  entry.Object,
		}
	}
	return out, nil
}

// CompileJobGroup is the unit of work the Driver batches mandatory/discovered inputs
// into and hands to a Compiler — spec.md's "compiler driver proper ... batching of
// jobs" external collaborator, given one concrete shape here. One job per primary
// input, matching the teacher's one-edge-per-output granularity (build.go/graph.go).
type CompileJobGroup struct {
	ID            uuid.UUID
	PrimaryInputs []string
}

// JobExitStatus is the outcome of running a CompileJobGroup.
type JobExitStatus int

const (
	JobSucceeded JobExitStatus = iota
	JobFailed
)

// CompileResult is what a Compiler reports back for a finished job.
type CompileResult struct {
	Job    CompileJobGroup
	Status JobExitStatus
	Err    error
}

// Compiler is the pluggable external collaborator that actually runs a compile job
// (subprocess launch, argument formation — out of scope per spec.md §1). The planner
// only ever needs to know it finished and whether it succeeded.
type Compiler interface {
	Compile(ctx context.Context, job CompileJobGroup) CompileResult
}

// InMemoryCompiler is a deterministic, in-process Compiler used by the CLI's demo mode
// and by tests: it looks up a scripted outcome for each job's inputs rather than
// spawning anything, letting tests exercise the full scheduler loop without touching a
// real compiler or filesystem. Grounded on the teacher's DryRunCommandRunner
// (build.go), generalized from "always succeeds" to "scripted per input".
type InMemoryCompiler struct {
	mu       sync.Mutex
	Outcomes map[string]JobExitStatus // input -> outcome; default JobSucceeded
}

// NewInMemoryCompiler returns a compiler that succeeds on every input by default.
func NewInMemoryCompiler() *InMemoryCompiler {
	return &InMemoryCompiler{Outcomes: make(map[string]JobExitStatus)}
}

// SetOutcome scripts the result for a specific input.
func (c *InMemoryCompiler) SetOutcome(input string, status JobExitStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Outcomes[input] = status
}

func (c *InMemoryCompiler) Compile(_ context.Context, job CompileJobGroup) CompileResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := JobSucceeded
	for _, in := range job.PrimaryInputs {
		if c.Outcomes[in] == JobFailed {
			status = JobFailed
		}
	}
	return CompileResult{Job: job, Status: status}
}

// Driver batches an ordered list of inputs into CompileJobGroups and runs them
// concurrently through a Compiler, feeding every completion to onFinished one at a
// time (spec.md §5's critical-section shape). This is the concrete, swappable
// implementation of the "compiler driver proper" external collaborator named in
// spec.md §1/§6. SecondWaveScheduler does not go through Driver; it launches its own
// jobs.
type Driver struct {
	Compiler Compiler
}

// NewDriver returns a Driver that runs jobs through compiler.
func NewDriver(compiler Compiler) *Driver {
	return &Driver{Compiler: compiler}
}

// BatchJobs turns an ordered input list into one CompileJobGroup per input, preserving
// order (spec.md §4.5, "mandatoryJobsInOrder").
func (d *Driver) BatchJobs(inputs []string) []CompileJobGroup {
	jobs := make([]CompileJobGroup, 0, len(inputs))
	for _, in := range inputs {
		jobs = append(jobs, CompileJobGroup{ID: uuid.New(), PrimaryInputs: []string{in}})
	}
	return jobs
}

// Run launches every job concurrently and delivers each CompileResult to onFinished as
// it completes. onFinished is invoked from a single goroutine (this one), one result at
// a time, satisfying the spec's serializing-critical-section contract — callers must
// not themselves call back into the scheduler from another goroutine.
func (d *Driver) Run(ctx context.Context, jobs []CompileJobGroup, onFinished func(CompileResult)) {
	results := make(chan CompileResult, len(jobs))
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job CompileJobGroup) {
			defer wg.Done()
			results <- d.Compiler.Compile(ctx, job)
		}(job)
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for r := range results {
		onFinished(r)
	}
}
