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

func TestEncodeDecodeSourceSummaryRoundTrip(t *testing.T) {
	provider := ProviderID("a.swiftdeps")
	original := &ParsedSummary{
		Definitions: []ParsedDefinition{
			{Key: anchorKey(provider)},
			{Key: DependencyKey{Aspect: AspectInterface, Designator: TopLevel("foo")}, Fingerprint: NewFingerprint("v1")},
			{Key: DependencyKey{Designator: Member("Widget", "render")}},
		},
		Uses: []DependencyKey{
			{Aspect: AspectInterface, Designator: ExternalDepend("/usr/include/foo.h")},
		},
	}

	raw, err := EncodeSourceSummary("a.swift", original)
	require.NoError(t, err)

	decoded, err := DecodeSourceSummary(provider, raw)
	require.NoError(t, err)
	assert.ElementsMatch(t, original.Definitions, decoded.Definitions)
	assert.Equal(t, original.Uses, decoded.Uses)
}

func TestDecodeSourceSummarySynthesizesMissingAnchor(t *testing.T) {
	provider := ProviderID("a.swiftdeps")
	raw, err := EncodeSourceSummary("a.swift", &ParsedSummary{
		Definitions: []ParsedDefinition{{Key: DependencyKey{Designator: TopLevel("foo")}}},
	})
	require.NoError(t, err)

	decoded, err := DecodeSourceSummary(provider, raw)
	require.NoError(t, err)

	found := false
	for _, d := range decoded.Definitions {
		if d.Key == anchorKey(provider) {
			found = true
		}
	}
	assert.True(t, found, "expected synthesized anchor definition")
}

func TestDecodeSourceSummaryRejectsUnknownDesignatorKind(t *testing.T) {
	raw := []byte(`{"path":"a.swift","definitions":[{"key":{"aspect":"interface","designator":{"kind":"bogus"}}}],"uses":[]}`)
	_, err := DecodeSourceSummary("a.swiftdeps", raw)
	assert.Error(t, err)
}

func TestDecodeSourceSummaryRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeSourceSummary("a.swiftdeps", []byte("not json"))
	assert.Error(t, err)
}

func TestAferoSummaryReaderReadsByProviderPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	provider := ProviderID("/out/a.swiftdeps")
	raw, err := EncodeSourceSummary("a.swift", anchorSummary(provider))
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, string(provider), raw, 0o644))

	reader := &AferoSummaryReader{FS: fs}
	summary, err := reader.ReadSummary(provider)
	require.NoError(t, err)
	assert.Len(t, summary.Definitions, 1)
}

func TestAferoSummaryReaderMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	reader := &AferoSummaryReader{FS: fs}
	_, err := reader.ReadSummary("/out/missing.swiftdeps")
	assert.Error(t, err)
}
