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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuildRecordMissingFileIsNotAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	record, err := LoadBuildRecord(fs, "/build/record.json")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestBuildRecordRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	record := NewBuildRecord()
	record.BuildStartTime = 1000
	record.Inputs["a.swift"] = BuildRecordEntry{Status: StatusUpToDate, PreviousModTime: 500}
	record.Inputs["b.swift"] = BuildRecordEntry{Status: StatusNeedsCascadingBuild, PreviousModTime: 600}

	require.NoError(t, record.Save(fs, "/build/record.json"))

	loaded, err := LoadBuildRecord(fs, "/build/record.json")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record.BuildStartTime, loaded.BuildStartTime)
	assert.Equal(t, record.Inputs, loaded.Inputs)
}

func TestLoadBuildRecordRejectsMalformedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/build/record.json", []byte("not json"), 0o644))

	_, err := LoadBuildRecord(fs, "/build/record.json")
	assert.Error(t, err)
}
