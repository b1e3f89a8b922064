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
	"bytes"
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

// Session is the top-level entry point SPEC_FULL.md §4.12's CLI drives: given an input
// list, an output file map, and a filesystem, it loads the prior build record and every
// input's summary, builds the initial graph, runs change detection and first-wave
// planning, and (if asked) drives a Compiler through the second wave to completion.
// Grounded on the teacher's Builder (build.go) as the thing that owns one build's worth
// of state end to end, generalized from "ninja edges" to "module dependency providers".
type Session struct {
	FS      afero.Fs
	Config  Config
	Outputs OutputFileMap
	Disk    DiskInterface
	Remarks Remarks

	graph          *ModuleDependencyGraph
	reader         SummaryReader
	buildStartTime int64
}

// PlanResult is everything Session.Plan computes before any compile runs.
type PlanResult struct {
	Graph *ModuleDependencyGraph
	Plan  FirstWavePlan
	// Fallback is non-nil when incremental mode was disabled; Plan.Mandatory then
	// contains every input, in order, as a conservative full rebuild.
	Fallback error
}

// NewSession wires a Session's collaborators. remarks may be nil (defaults to
// NoopRemarks).
func NewSession(fs afero.Fs, cfg Config, outputs OutputFileMap, remarks Remarks) *Session {
	if remarks == nil {
		remarks = NoopRemarks{}
	}
	return &Session{
		FS:      fs,
		Config:  cfg,
		Outputs: outputs,
		Disk:    NewAferoDisk(fs),
		Remarks: remarks,
		reader:  &AferoSummaryReader{FS: fs},
	}
}

// Plan runs change detection and first-wave planning for inputs. It loads the prior
// build record and, for each input, binds its source<->provider mapping and integrates
// its already-emitted summary (if any) into a fresh graph — this is "initial graph
// construction" (spec.md §1, §4.2): a malformed summary here disables incremental mode
// entirely, as spec.md §6/§7 require, rather than only affecting one input.
//
// buildStartTime is the current build's own wall-clock start (e.g. time.Now().Unix()),
// recorded so Drive can stamp it into the record this build produces. Externally-affected
// inputs (spec.md §4.5 item 2) are computed against the *prior* build's recorded start
// time (record.BuildStartTime), not this one. Without a prior record there is no such
// comparison at all: incremental mode is disabled and every input is mandatory.
func (s *Session) Plan(buildStartTime int64, inputs []string, externalDeps []ExternalDependency) (*PlanResult, error) {
	record, err := LoadBuildRecord(s.FS, s.Config.BuildRecordPath)
	if err != nil {
		return nil, err
	}
	s.buildStartTime = buildStartTime

	priorBuildStartTime := buildStartTime
	if record != nil {
		priorBuildStartTime = record.BuildStartTime
	}

	if fallbackErr := checkDisablingConditions(s.Config, inputs, s.Outputs, record); fallbackErr != nil {
		s.Remarks.Disabled(fallbackErr.Error())
		return &PlanResult{
			Plan:     FirstWavePlan{Mandatory: append([]string(nil), inputs...)},
			Fallback: fallbackErr,
		}, nil
	}

	graph := NewModuleDependencyGraph(GraphOptions{
		EmitDotAfterIntegration: s.Config.EmitDotAfterIntegration,
		VerifyAfterIntegration:  s.Config.VerifyAfterIntegration,
		DotWriter:               s.writeDot,
	})

	// Collect every malformed summary encountered during initial graph construction
	// rather than bailing out on the first one, so the disabling remark names all of
	// them at once (spec.md §7's "disable incremental mode with remark" is one decision
	// made over the whole batch, not per input).
	var malformed *multierror.Error
	for _, in := range inputs {
		summaryPath, ok := s.Outputs.SummaryPath(in)
		if !ok {
			continue
		}
		provider := ProviderID(summaryPath)
		if err := graph.BindSource(in, provider); err != nil {
			return nil, err
		}
		if !s.Disk.Exists(summaryPath) {
			continue // no summary yet: the first-wave planner's missing-output step schedules it
		}
		if _, err := graph.ReadSummaryAndIntegrate(s.reader, provider); err != nil {
			malformed = multierror.Append(malformed, fmt.Errorf("%s: %w", in, err))
		}
	}
	if malformed.ErrorOrNil() != nil {
		reason := fmt.Sprintf("summaries malformed during initial graph construction: %v", malformed)
		s.Remarks.Disabled(reason)
		return &PlanResult{
			Plan:     FirstWavePlan{Mandatory: append([]string(nil), inputs...)},
			Fallback: &IncrementalNotApplicable{Reason: reason},
		}, nil
	}

	detector := NewChangeDetector(record, s.Disk)
	planner := &FirstWavePlanner{
		Inputs:                  inputs,
		Detector:                detector,
		Graph:                   graph,
		ExternalDependencies:    externalDeps,
		BuildStartTime:          priorBuildStartTime,
		Outputs:                 s.Outputs,
		Disk:                    s.Disk,
		AlwaysRebuildDependents: s.Config.AlwaysRebuildDependents,
		Remarks:                 s.Remarks,
	}

	s.graph = graph
	return &PlanResult{Graph: graph, Plan: planner.Plan()}, nil
}

// Drive runs plan.Mandatory through compiler to completion via a SecondWaveScheduler,
// then persists the updated build record. Callers that only want mandatoryJobsInOrder
// (spec.md §6) without actually compiling should stop after Plan.
func (s *Session) Drive(ctx context.Context, compiler Compiler, result *PlanResult) (*BuildOutcome, error) {
	graph := result.Graph
	if graph == nil {
		graph = s.graph
	}
	scheduler := NewSecondWaveScheduler(graph, compiler, s.reader, s.Outputs, s.Disk, s.Remarks, s.buildStartTime)
	outcome, err := scheduler.Run(ctx, result.Plan)
	if err != nil {
		return nil, err
	}
	for _, in := range outcome.Skipped {
		if mtime, ok := s.Disk.ModTimeSeconds(in); ok {
			outcome.Record.Inputs[in] = BuildRecordEntry{Status: StatusUpToDate, PreviousModTime: mtime}
		}
	}
	if err := outcome.Record.Save(s.FS, s.Config.BuildRecordPath); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *Session) writeDot(dot string) {
	if s.Config.DotOutputPath == "" {
		return
	}
	_ = afero.WriteFile(s.FS, s.Config.DotOutputPath, []byte(dot), 0o644)
}

// FormatMandatory renders a plan's mandatory job list one input per line, for the CLI's
// plain-text output.
func FormatMandatory(plan FirstWavePlan) string {
	var b bytes.Buffer
	for _, in := range plan.Mandatory {
		fmt.Fprintln(&b, in)
	}
	return b.String()
}
