// Copyright 2016 Google Inc. All Rights Reserved.
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
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// CompileContext backs the "{compile: <output-basename> <= <input-basename>}" suffix a
// per-input remark may carry (spec.md §6). A nil *CompileContext means no output-file-map
// entry was available for that input, and the suffix is omitted entirely.
type CompileContext struct {
	OutputBasename string
	InputBasename  string
}

func (c *CompileContext) String() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(" {compile: %s <= %s}", c.OutputBasename, c.InputBasename)
}

func basename(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

// Remarks is the planner's diagnostics sink: every user-visible message spec.md calls a
// "remark" is emitted through here. ShowJobLifecycle/ShowIncremental (spec.md §6) select
// which of the two remark families are promoted to Info versus kept at Debug.
type Remarks interface {
	// JobLifecycle emits a per-job lifecycle remark (queued/started/finished).
	JobLifecycle(message string, ctx *CompileContext)
	// Incremental emits a first-wave/second-wave planning remark (queuing, skipping,
	// scheduling speculatively).
	Incremental(message string, ctx *CompileContext)
	// Disabled reports one of spec.md §6's incremental-mode disabling conditions.
	Disabled(reason string)
	// Failed reports a job failure or a conservative "compiling everything" fallback.
	Failed(message string)
}

// HCLogRemarks is the production Remarks implementation, wrapping a named hclog.Logger
// sub-logger the way OpenTofu names its own subsystem loggers off of a shared root.
type HCLogRemarks struct {
	Logger           hclog.Logger
	ShowJobLifecycle bool
	ShowIncremental  bool
}

// NewHCLogRemarks returns a Remarks backed by a freshly named hclog logger.
func NewHCLogRemarks(showJobLifecycle, showIncremental bool) *HCLogRemarks {
	return &HCLogRemarks{
		Logger:           hclog.Default().Named("icplan"),
		ShowJobLifecycle: showJobLifecycle,
		ShowIncremental:  showIncremental,
	}
}

func (r *HCLogRemarks) JobLifecycle(message string, ctx *CompileContext) {
	full := message + ctx.String()
	if r.ShowJobLifecycle {
		r.Logger.Info(full)
	} else {
		r.Logger.Debug(full)
	}
}

func (r *HCLogRemarks) Incremental(message string, ctx *CompileContext) {
	full := message + ctx.String()
	if r.ShowIncremental {
		r.Logger.Info(full)
	} else {
		r.Logger.Debug(full)
	}
}

func (r *HCLogRemarks) Disabled(reason string) {
	r.Logger.Warn("disabling incremental build: " + reason)
}

func (r *HCLogRemarks) Failed(message string) {
	r.Logger.Error(message)
}

// NoopRemarks discards every remark; the default for callers and tests that don't care
// about diagnostics output.
type NoopRemarks struct{}

func (NoopRemarks) JobLifecycle(string, *CompileContext) {}
func (NoopRemarks) Incremental(string, *CompileContext)  {}
func (NoopRemarks) Disabled(string)                      {}
func (NoopRemarks) Failed(string)                        {}
