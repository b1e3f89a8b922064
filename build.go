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
	"fmt"

	"github.com/google/uuid"
)

// BuildOutcome is what a full SecondWaveScheduler.Run produces: which inputs actually
// compiled, which failed, and the record to persist for the next build's ChangeDetector.
type BuildOutcome struct {
	Compiled []string
	Failed   []string
	Skipped  []string
	Record   *BuildRecord
}

// jobCompletion pairs a finished CompileResult with the single input it was launched
// for — this scheduler only ever batches one input per job (driver.go's BatchJobs
// convention), so there is no ambiguity about which input a result belongs to.
type jobCompletion struct {
	result CompileResult
	input  string
}

// SecondWaveScheduler drives a build to completion after FirstWavePlanner has computed
// the mandatory set: it dispatches jobs through a Compiler, and on each completion
// re-integrates that input's freshly written summary into the graph, traces the
// resulting changes, and releases any still-skipped input the trace reaches (spec.md
// §4.6). All of that bookkeeping happens in the single goroutine running Run's receive
// loop — the "single serializing critical section" spec.md §5 requires; only the
// Compiler.Compile calls themselves run concurrently, each in its own goroutine.
type SecondWaveScheduler struct {
	Graph         *ModuleDependencyGraph
	Compiler      Compiler
	SummaryReader SummaryReader
	Outputs       OutputFileMap
	Disk          DiskInterface
	Remarks       Remarks
	// BuildStartTime is this build's own wall-clock start, stamped into the record Run
	// produces so the *next* build's FirstWavePlanner can compare external-dependency
	// mtimes against it (spec.md §4.5 item 2, §3).
	BuildStartTime int64
}

// NewSecondWaveScheduler wires together the collaborators a build needs once the first
// wave is known. buildStartTime is this build's own start time, recorded into the
// BuildOutcome's Record for the next build to read back.
func NewSecondWaveScheduler(graph *ModuleDependencyGraph, compiler Compiler, reader SummaryReader, outputs OutputFileMap, disk DiskInterface, remarks Remarks, buildStartTime int64) *SecondWaveScheduler {
	if remarks == nil {
		remarks = NoopRemarks{}
	}
	return &SecondWaveScheduler{
		Graph:          graph,
		Compiler:       compiler,
		SummaryReader:  reader,
		Outputs:        outputs,
		Disk:           disk,
		Remarks:        remarks,
		BuildStartTime: buildStartTime,
	}
}

// Run dispatches plan.Mandatory, then keeps releasing newly-discovered dependents of
// skipped inputs as each job's summary comes back, until no job remains in flight and
// nothing further is released (spec.md §4.6). It stops releasing new work — but lets
// already-started jobs finish — as soon as one job fails (spec.md §7).
func (s *SecondWaveScheduler) Run(ctx context.Context, plan FirstWavePlan) (*BuildOutcome, error) {
	skipped := make(map[string]bool, len(plan.Skipped))
	for _, in := range plan.Skipped {
		skipped[in] = true
	}

	record := NewBuildRecord()
	record.BuildStartTime = s.BuildStartTime
	results := make(chan jobCompletion)
	pending := 0
	failedAny := false

	launch := func(input string) {
		job := CompileJobGroup{ID: uuid.New(), PrimaryInputs: []string{input}}
		pending++
		s.remark(input, "starting job")
		go func() {
			results <- jobCompletion{result: s.Compiler.Compile(ctx, job), input: input}
		}()
	}

	for _, in := range plan.Mandatory {
		launch(in)
	}

	var compiled, failed []string
	for pending > 0 {
		c := <-results
		pending--

		if c.result.Status != JobSucceeded {
			failedAny = true
			failed = append(failed, c.input)
			record.Inputs[c.input] = BuildRecordEntry{Status: StatusNeedsCascadingBuild}
			s.Remarks.Failed((&JobFailedError{Job: c.result.Job}).Error())
			continue
		}

		compiled = append(compiled, c.input)
		s.remark(c.input, "job finished")
		if mtime, ok := s.Disk.ModTimeSeconds(c.input); ok {
			record.Inputs[c.input] = BuildRecordEntry{Status: StatusUpToDate, PreviousModTime: mtime}
		}

		if failedAny {
			// A prior job already failed: stop releasing new work, but let every job
			// still in flight run to completion (spec.md §7).
			continue
		}

		released, err := s.onFinished(c.input, skipped)
		if err != nil {
			var malformed *MalformedSummary
			if asMalformedSummary(err, &malformed) {
				s.Remarks.Failed(fmt.Sprintf("malformed summary for %q, conservatively scheduling every remaining skipped input", c.input))
				for in := range skipped {
					delete(skipped, in)
					launch(in)
				}
				continue
			}
			return nil, err
		}
		for _, in := range released {
			launch(in)
		}
	}

	var stillSkipped []string
	for in := range skipped {
		stillSkipped = append(stillSkipped, in)
	}

	return &BuildOutcome{Compiled: compiled, Failed: failed, Skipped: stillSkipped, Record: record}, nil
}

// onFinished re-integrates input's summary and returns the subset of skipped inputs the
// resulting trace reaches, removing them from skipped as they are released (spec.md
// §4.6 steps 2-4).
func (s *SecondWaveScheduler) onFinished(input string, skipped map[string]bool) ([]string, error) {
	if len(skipped) == 0 {
		// Nothing left to release. This is always the case after Session.Plan fell back
		// to a full rebuild, where the plan skips nothing and carries no graph.
		return nil, nil
	}
	provider, ok := s.Graph.ProviderForSource(input)
	if !ok {
		return nil, &InvariantViolated{Detail: fmt.Sprintf("no provider bound for finished input %q", input)}
	}

	affected, err := s.Graph.FindSourcesToCompileAfterCompiling(s.SummaryReader, provider)
	if err != nil {
		return nil, err
	}

	var released []string
	for _, in := range affected {
		if skipped[in] {
			delete(skipped, in)
			released = append(released, in)
			s.remark(in, "scheduling because a dependency changed")
		}
	}
	return released, nil
}

func (s *SecondWaveScheduler) remark(input, message string) {
	var ctx *CompileContext
	if outputPath, ok := s.Outputs.ObjectPath(input); ok {
		ctx = &CompileContext{OutputBasename: basename(outputPath), InputBasename: basename(input)}
	}
	s.Remarks.JobLifecycle(message, ctx)
}

// asMalformedSummary reports whether err is a *MalformedSummary, assigning it into out
// on success. A small helper rather than errors.As at call sites, since this is the only
// place that needs to distinguish it from an InvariantViolated or other planner error.
func asMalformedSummary(err error, out **MalformedSummary) bool {
	m, ok := err.(*MalformedSummary)
	if ok {
		*out = m
	}
	return ok
}
