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

// Classification is the change detector's verdict for one input (spec.md §4.4).
type Classification int

const (
	ClassificationSkipCandidate Classification = iota
	ClassificationChanged
	ClassificationNewlyAdded
	ClassificationChangedCascading
	ClassificationChangedNonCascading
)

// IsChanged reports whether c represents any flavor of "changed" (as opposed to a
// skip candidate) — newly-added inputs count as changed for first-wave purposes.
func (c Classification) IsChanged() bool {
	return c != ClassificationSkipCandidate
}

// IsCascading reports whether a changed input should speculatively cascade to its
// dependents (spec.md §4.5, "Speculative dependents").
func (c Classification) IsCascading() bool {
	return c == ClassificationChangedCascading
}

// ChangeDetector compares current input mtimes against the prior build record and
// classifies each input (spec.md §4.4).
type ChangeDetector struct {
	record *BuildRecord
	disk   DiskInterface
}

// NewChangeDetector returns a ChangeDetector comparing against record using disk to
// read current mtimes. record may be nil (every input classifies as newly added).
func NewChangeDetector(record *BuildRecord, disk DiskInterface) *ChangeDetector {
	return &ChangeDetector{record: record, disk: disk}
}

// Classify classifies a single input path per spec.md §4.4.
func (d *ChangeDetector) Classify(input string) Classification {
	var prior BuildRecordEntry
	hasPrior := false
	if d.record != nil {
		prior, hasPrior = d.record.Inputs[input]
	}
	if !hasPrior {
		return ClassificationNewlyAdded
	}

	switch prior.Status {
	case StatusUpToDate:
		mtime, known := d.disk.ModTimeSeconds(input)
		datesMatch := known && mtime == prior.PreviousModTime
		if datesMatch {
			return ClassificationSkipCandidate
		}
		return ClassificationChanged
	case StatusNewlyAdded:
		return ClassificationNewlyAdded
	case StatusNeedsCascadingBuild:
		return ClassificationChangedCascading
	case StatusNeedsNonCascading:
		return ClassificationChangedNonCascading
	default:
		// Unrecognized prior status: conservative treatment, safe to over-approximate
		// (spec.md §1, Non-goals) rather than trust an unknown value.
		return ClassificationChanged
	}
}
