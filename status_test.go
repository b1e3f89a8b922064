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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileContextStringFormatsCanonicalSuffix(t *testing.T) {
	ctx := &CompileContext{OutputBasename: "a.o", InputBasename: "a.swift"}
	assert.Equal(t, " {compile: a.o <= a.swift}", ctx.String())
}

func TestCompileContextStringNilOmitsSuffix(t *testing.T) {
	var ctx *CompileContext
	assert.Equal(t, "", ctx.String())
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "a.swift", basename("/src/pkg/a.swift"))
	assert.Equal(t, "", basename(""))
}

func TestNoopRemarksDiscardsEverything(t *testing.T) {
	var r Remarks = NoopRemarks{}
	r.JobLifecycle("starting", nil)
	r.Incremental("queuing", nil)
	r.Disabled("no record")
	r.Failed("boom")
}
