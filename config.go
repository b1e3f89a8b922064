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

// Config is the full set of recognised options (spec.md §6) plus the ambient paths the
// CLI and codecs need to locate the prior build record and optional DOT snapshots.
type Config struct {
	ShowJobLifecycle bool
	ShowIncremental  bool

	EmitDotAfterIntegration bool
	VerifyAfterIntegration  bool
	AlwaysRebuildDependents bool

	BuildRecordPath string
	DotOutputPath   string
}

// DefaultConfig returns the zero-value configuration: no debug output, no speculative
// cascading, and only the default remark verbosity.
func DefaultConfig() Config {
	return Config{}
}

// checkDisablingConditions inspects the inputs spec.md §6 names and returns an
// *IncrementalNotApplicable describing the first one that fails, or nil if incremental
// mode may proceed.
func checkDisablingConditions(cfg Config, inputs []string, outputs OutputFileMap, record *BuildRecord) error {
	if outputs == nil {
		return &IncrementalNotApplicable{Reason: "no output file map supplied"}
	}
	if cfg.BuildRecordPath == "" {
		return &IncrementalNotApplicable{Reason: "no build record path configured"}
	}
	if record == nil {
		return &IncrementalNotApplicable{Reason: "no prior build record found"}
	}

	current := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		current[in] = true
		if _, ok := outputs.SummaryPath(in); !ok {
			return &IncrementalNotApplicable{Reason: "input " + in + " has no reserved summary-file path"}
		}
	}
	for prior := range record.Inputs {
		if !current[prior] {
			return &IncrementalNotApplicable{Reason: "prior input " + prior + " missing from the current input list"}
		}
	}
	return nil
}
