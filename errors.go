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

// IncrementalNotApplicable is not a failure: one of the preconditions in spec.md §6
// ("Disabling conditions") did not hold, so the caller falls back to a full rebuild and
// emits a remark explaining why.
type IncrementalNotApplicable struct {
	Reason string
}

func (e *IncrementalNotApplicable) Error() string {
	return fmt.Sprintf("icplan: incremental mode not applicable: %s", e.Reason)
}

// MissingOutput means an input's declared output file does not exist; the planner
// forces that input into the mandatory set (spec.md §4.5 item 4, §7).
type MissingOutput struct {
	Input string
}

func (e *MissingOutput) Error() string {
	return fmt.Sprintf("icplan: missing output for input %q", e.Input)
}

// JobFailedError wraps a compile job's non-success exit, propagated to the driver; the
// planner stops releasing new work once it sees one (spec.md §7).
type JobFailedError struct {
	Job CompileJobGroup
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("icplan: job %s failed (inputs: %v)", e.Job.ID, e.Job.PrimaryInputs)
}

// InvariantViolated is an assertion-class error: fatal in debug builds, logged and
// downgraded to a full rebuild in release (spec.md §7). Choosing between those behaviors
// is left to the caller; this type only carries the information.
type InvariantViolated struct {
	Detail string
}

func (e *InvariantViolated) Error() string {
	return fmt.Sprintf("icplan: invariant violated: %s", e.Detail)
}
