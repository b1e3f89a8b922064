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
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// InputStatus is the prior build's classification of one input, carried forward from
// run to run (spec.md §3, BuildRecord).
type InputStatus string

const (
	StatusUpToDate             InputStatus = "upToDate"
	StatusNewlyAdded           InputStatus = "newlyAdded"
	StatusNeedsCascadingBuild  InputStatus = "needsCascadingBuild"
	StatusNeedsNonCascading    InputStatus = "needsNonCascadingBuild"
)

// BuildRecordEntry is the persisted state for a single prior input.
type BuildRecordEntry struct {
	Status          InputStatus
	PreviousModTime int64 // whole seconds since epoch
}

// BuildRecord is the persisted per-input state from the previous build: last-seen
// status and mtime, plus the prior build's start time (spec.md §3).
type BuildRecord struct {
	BuildStartTime int64
	Inputs         map[string]BuildRecordEntry
}

// NewBuildRecord returns an empty record, as if no prior build ever ran.
func NewBuildRecord() *BuildRecord {
	return &BuildRecord{Inputs: make(map[string]BuildRecordEntry)}
}

// buildRecordFile is the on-disk JSON shape; whole-second timestamps avoid the
// sub-second floating point drift the spec explicitly warns about (spec.md §4.4, §9).
type buildRecordFile struct {
	BuildStartTime int64                       `json:"buildStartTime"`
	Inputs         map[string]buildRecordEntry `json:"inputs"`
}

type buildRecordEntry struct {
	Status          string `json:"status"`
	PreviousModTime int64  `json:"previousModTime"`
}

// LoadBuildRecord reads and decodes a build record from path using fs. A missing file
// is reported as (nil, nil) — the caller is expected to recognize "no build record"
// as one of the disabling conditions in spec.md §6, not as an error.
func LoadBuildRecord(fs afero.Fs, path string) (*BuildRecord, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("icplan: checking build record %q: %w", path, err)
	}
	if !exists {
		return nil, nil
	}
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("icplan: reading build record %q: %w", path, err)
	}
	var file buildRecordFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("icplan: parsing build record %q: %w", path, err)
	}
	record := &BuildRecord{
		BuildStartTime: file.BuildStartTime,
		Inputs:         make(map[string]BuildRecordEntry, len(file.Inputs)),
	}
	for input, e := range file.Inputs {
		record.Inputs[input] = BuildRecordEntry{
			Status:          InputStatus(e.Status),
			PreviousModTime: e.PreviousModTime,
		}
	}
	return record, nil
}

// Save writes the record to path as JSON. BuildStartTime and every PreviousModTime are
// already whole seconds and are written unchanged.
func (r *BuildRecord) Save(fs afero.Fs, path string) error {
	file := buildRecordFile{
		BuildStartTime: r.BuildStartTime,
		Inputs:         make(map[string]buildRecordEntry, len(r.Inputs)),
	}
	for input, e := range r.Inputs {
		file.Inputs[input] = buildRecordEntry{
			Status:          string(e.Status),
			PreviousModTime: e.PreviousModTime,
		}
	}
	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("icplan: encoding build record: %w", err)
	}
	if err := afero.WriteFile(fs, path, raw, 0o644); err != nil {
		return fmt.Errorf("icplan: writing build record %q: %w", path, err)
	}
	return nil
}

// wholeSeconds truncates t to whole-second precision, matching the prior record's
// storage format so sub-second drift never causes a spurious "changed" classification
// (spec.md §4.4, §9).
func wholeSeconds(t time.Time) int64 {
	return t.Unix()
}
