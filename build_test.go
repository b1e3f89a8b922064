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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompiler writes a scripted *ParsedSummary (or malformed bytes, or nothing on
// a scripted failure) to <input>.swiftdeps when a job runs, so the scheduler's
// re-integration step has something real to read back.
type scriptedCompiler struct {
	fs        afero.Fs
	summaries map[string]*ParsedSummary
	malformed map[string]bool
	fail      map[string]bool
}

func newScriptedCompiler(fs afero.Fs) *scriptedCompiler {
	return &scriptedCompiler{
		fs:        fs,
		summaries: make(map[string]*ParsedSummary),
		malformed: make(map[string]bool),
		fail:      make(map[string]bool),
	}
}

func (c *scriptedCompiler) Compile(_ context.Context, job CompileJobGroup) CompileResult {
	input := job.PrimaryInputs[0]
	if c.fail[input] {
		return CompileResult{Job: job, Status: JobFailed}
	}

	path := input + ".swiftdeps"
	if c.malformed[input] {
		if err := afero.WriteFile(c.fs, path, []byte("not valid json"), 0o644); err != nil {
			panic(err)
		}
		return CompileResult{Job: job, Status: JobSucceeded}
	}

	summary := c.summaries[input]
	if summary == nil {
		summary = anchorSummary(ProviderID(path))
	}
	raw, err := EncodeSourceSummary(path, summary)
	if err != nil {
		panic(err)
	}
	if err := afero.WriteFile(c.fs, path, raw, 0o644); err != nil {
		panic(err)
	}
	return CompileResult{Job: job, Status: JobSucceeded}
}

func TestSecondWaveNoChangesReleasesNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swiftdeps"))

	scheduler := NewSecondWaveScheduler(graph, newScriptedCompiler(fs), &AferoSummaryReader{FS: fs}, outputsFor("a.swift"), &fakeDisk{}, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{Skipped: []string{"a.swift"}})
	require.NoError(t, err)

	assert.Empty(t, outcome.Compiled)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, []string{"a.swift"}, outcome.Skipped)
}

func TestSecondWaveLeafChangeCompiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swift.swiftdeps"))

	disk := &fakeDisk{mtimes: map[string]int64{"a.swift": 100}}
	scheduler := NewSecondWaveScheduler(graph, newScriptedCompiler(fs), &AferoSummaryReader{FS: fs}, outputsFor("a.swift"), disk, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{Mandatory: []string{"a.swift"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.swift"}, outcome.Compiled)
	assert.Empty(t, outcome.Failed)
	assert.Empty(t, outcome.Skipped)
	assert.Equal(t, StatusUpToDate, outcome.Record.Inputs["a.swift"].Status)
	assert.Equal(t, int64(1000), outcome.Record.BuildStartTime)
}

func TestSecondWaveCascadingChangeReleasesDependent(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swift.swiftdeps"))
	require.NoError(t, graph.BindSource("b.swift", "b.swift.swiftdeps"))

	fooKey := DependencyKey{Designator: TopLevel("foo")}
	// b already depends on foo; a does not define it yet.
	useB := anchorSummary("b.swift.swiftdeps")
	useB.Uses = []DependencyKey{fooKey}
	_, err := graph.Integrate("b.swift.swiftdeps", useB)
	require.NoError(t, err)
	_, err = graph.Integrate("a.swift.swiftdeps", anchorSummary("a.swift.swiftdeps"))
	require.NoError(t, err)

	compiler := newScriptedCompiler(fs)
	compiler.summaries["a.swift"] = anchorSummary("a.swift.swiftdeps", ParsedDefinition{Key: fooKey})

	disk := &fakeDisk{mtimes: map[string]int64{"a.swift": 100, "b.swift": 100}}
	scheduler := NewSecondWaveScheduler(graph, compiler, &AferoSummaryReader{FS: fs}, outputsFor("a.swift", "b.swift"), disk, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{Mandatory: []string{"a.swift"}, Skipped: []string{"b.swift"}})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.swift", "b.swift"}, outcome.Compiled)
	assert.Empty(t, outcome.Skipped)
}

func TestSecondWaveDiscoveredDependentRipplesTransitively(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swift.swiftdeps"))
	require.NoError(t, graph.BindSource("b.swift", "b.swift.swiftdeps"))
	require.NoError(t, graph.BindSource("c.swift", "c.swift.swiftdeps"))

	fooKey := DependencyKey{Designator: TopLevel("foo")}
	barKey := DependencyKey{Designator: TopLevel("bar")}

	// b depends on foo (defined by a) and itself defines bar; c depends on bar.
	useB := anchorSummary("b.swift.swiftdeps", ParsedDefinition{Key: barKey})
	useB.Uses = []DependencyKey{fooKey}
	_, err := graph.Integrate("b.swift.swiftdeps", useB)
	require.NoError(t, err)
	useC := anchorSummary("c.swift.swiftdeps")
	useC.Uses = []DependencyKey{barKey}
	_, err = graph.Integrate("c.swift.swiftdeps", useC)
	require.NoError(t, err)
	_, err = graph.Integrate("a.swift.swiftdeps", anchorSummary("a.swift.swiftdeps"))
	require.NoError(t, err)

	compiler := newScriptedCompiler(fs)
	compiler.summaries["a.swift"] = anchorSummary("a.swift.swiftdeps", ParsedDefinition{Key: fooKey})
	// b's recompile changes bar's fingerprint; c, which uses bar, is reached only once
	// b (released by a's new summary) has compiled and its new summary is traced.
	barUse := anchorSummary("b.swift.swiftdeps", ParsedDefinition{Key: barKey, Fingerprint: NewFingerprint("v2")})
	compiler.summaries["b.swift"] = barUse

	disk := &fakeDisk{mtimes: map[string]int64{"a.swift": 100, "b.swift": 100, "c.swift": 100}}
	scheduler := NewSecondWaveScheduler(graph, compiler, &AferoSummaryReader{FS: fs}, outputsFor("a.swift", "b.swift", "c.swift"), disk, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{
		Mandatory: []string{"a.swift"},
		Skipped:   []string{"b.swift", "c.swift"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.swift", "b.swift", "c.swift"}, outcome.Compiled)
	assert.Empty(t, outcome.Skipped)
}

func TestSessionPlanIncludesExternallyAffectedInputThenDrivesIt(t *testing.T) {
	fs := afero.NewMemMapFs()
	outputs := outputsFor("a.swift")
	summaryPath := "a.swift.swiftdeps"

	extKey := DependencyKey{Aspect: AspectInterface, Designator: ExternalDepend("/usr/include/foo.h")}
	use := anchorSummary(ProviderID(summaryPath))
	use.Uses = []DependencyKey{extKey}
	raw, err := EncodeSourceSummary(summaryPath, use)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, summaryPath, raw, 0o644))

	record := NewBuildRecord()
	record.Inputs["a.swift"] = BuildRecordEntry{Status: StatusUpToDate, PreviousModTime: 100}
	require.NoError(t, record.Save(fs, "/record.json"))

	cfg := Config{BuildRecordPath: "/record.json"}
	session := NewSession(fs, cfg, outputs, nil)
	session.Disk = &fakeDisk{
		mtimes: map[string]int64{"a.swift": 100},
		exists: map[string]bool{"a.swift.o": true, summaryPath: true},
	}

	result, err := session.Plan(50, []string{"a.swift"}, []ExternalDependency{{Path: "/usr/include/foo.h", ModTimeSeconds: 75}})
	require.NoError(t, err)
	require.NoError(t, result.Fallback)
	assert.Equal(t, []string{"a.swift"}, result.Plan.Mandatory)

	compiler := newScriptedCompiler(fs)
	outcome, err := session.Drive(context.Background(), compiler, result)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.swift"}, outcome.Compiled)
}

func TestSessionPlanUsesPriorRecordBuildStartTimeNotCallerValue(t *testing.T) {
	fs := afero.NewMemMapFs()
	outputs := outputsFor("a.swift")
	summaryPath := "a.swift.swiftdeps"

	extKey := DependencyKey{Aspect: AspectInterface, Designator: ExternalDepend("/usr/include/foo.h")}
	use := anchorSummary(ProviderID(summaryPath))
	use.Uses = []DependencyKey{extKey}
	raw, err := EncodeSourceSummary(summaryPath, use)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, summaryPath, raw, 0o644))

	// The prior build started at 50 and saw the external dependency at mtime 75: that
	// prior start time, not whatever "now" this call happens to pass, is what the
	// external-dependency comparison must use (spec.md §4.5 item 2, §3).
	record := NewBuildRecord()
	record.BuildStartTime = 50
	record.Inputs["a.swift"] = BuildRecordEntry{Status: StatusUpToDate, PreviousModTime: 100}
	require.NoError(t, record.Save(fs, "/record.json"))

	cfg := Config{BuildRecordPath: "/record.json"}
	session := NewSession(fs, cfg, outputs, nil)
	session.Disk = &fakeDisk{
		mtimes: map[string]int64{"a.swift": 100},
		exists: map[string]bool{"a.swift.o": true, summaryPath: true},
	}

	// Pass a much later "now" as the caller's buildStartTime: if Plan used it directly
	// for the external-dependency comparison instead of the prior record's, the external
	// dependency's mtime of 75 would look older than "now" and a.swift would stay skipped.
	result, err := session.Plan(99999, []string{"a.swift"}, []ExternalDependency{{Path: "/usr/include/foo.h", ModTimeSeconds: 75}})
	require.NoError(t, err)
	require.NoError(t, result.Fallback)
	assert.Equal(t, []string{"a.swift"}, result.Plan.Mandatory)

	compiler := newScriptedCompiler(fs)
	outcome, err := session.Drive(context.Background(), compiler, result)
	require.NoError(t, err)
	// The *new* record stamps this build's own start time (the caller's "now"), not the
	// prior record's, so the next build reads the right value back.
	assert.Equal(t, int64(99999), outcome.Record.BuildStartTime)
}

func TestSecondWaveMalformedSummaryMidBuildConservativelyReleasesSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swift.swiftdeps"))
	require.NoError(t, graph.BindSource("b.swift", "b.swift.swiftdeps"))
	require.NoError(t, graph.BindSource("c.swift", "c.swift.swiftdeps"))
	_, err := graph.Integrate("a.swift.swiftdeps", anchorSummary("a.swift.swiftdeps"))
	require.NoError(t, err)

	compiler := newScriptedCompiler(fs)
	compiler.malformed["a.swift"] = true

	disk := &fakeDisk{mtimes: map[string]int64{"a.swift": 100, "b.swift": 100, "c.swift": 100}}
	scheduler := NewSecondWaveScheduler(graph, compiler, &AferoSummaryReader{FS: fs}, outputsFor("a.swift", "b.swift", "c.swift"), disk, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{
		Mandatory: []string{"a.swift"},
		Skipped:   []string{"b.swift", "c.swift"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.swift", "b.swift", "c.swift"}, outcome.Compiled)
	assert.Empty(t, outcome.Skipped)
}

func TestSecondWaveFailureStopsReleasingNewWork(t *testing.T) {
	fs := afero.NewMemMapFs()
	graph := NewModuleDependencyGraph(GraphOptions{})
	require.NoError(t, graph.BindSource("a.swift", "a.swiftdeps"))
	require.NoError(t, graph.BindSource("b.swift", "b.swiftdeps"))

	fooKey := DependencyKey{Designator: TopLevel("foo")}
	useB := anchorSummary("b.swiftdeps")
	useB.Uses = []DependencyKey{fooKey}
	_, err := graph.Integrate("b.swiftdeps", useB)
	require.NoError(t, err)
	_, err = graph.Integrate("a.swiftdeps", anchorSummary("a.swiftdeps"))
	require.NoError(t, err)

	compiler := newScriptedCompiler(fs)
	compiler.fail["a.swift"] = true
	compiler.summaries["a.swift"] = anchorSummary("a.swiftdeps", ParsedDefinition{Key: fooKey})

	disk := &fakeDisk{mtimes: map[string]int64{"a.swift": 100, "b.swift": 100}}
	scheduler := NewSecondWaveScheduler(graph, compiler, &AferoSummaryReader{FS: fs}, outputsFor("a.swift", "b.swift"), disk, nil, 1000)
	outcome, err := scheduler.Run(context.Background(), FirstWavePlan{Mandatory: []string{"a.swift"}, Skipped: []string{"b.swift"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.swift"}, outcome.Failed)
	assert.Empty(t, outcome.Compiled)
	assert.Equal(t, []string{"b.swift"}, outcome.Skipped)
}
