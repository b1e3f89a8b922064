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

	"github.com/spf13/afero"
)

// sourceSummaryFile is the on-disk JSON shape of a per-source dependency summary, this
// module's concrete (and swappable) answer to spec.md §6's "opaque files ... parsed by
// a collaborator into {definitions: [(key, fingerprint)], uses: [key]}". The core
// planner never imports this type directly; it only ever sees a *ParsedSummary.
type sourceSummaryFile struct {
	Path        string               `json:"path"`
	Definitions []definitionRecord   `json:"definitions"`
	Uses        []keyRecord          `json:"uses"`
}

type definitionRecord struct {
	Key         keyRecord `json:"key"`
	Fingerprint *string   `json:"fingerprint,omitempty"`
}

type keyRecord struct {
	Aspect     string           `json:"aspect"`
	Designator designatorRecord `json:"designator"`
}

type designatorRecord struct {
	Kind    string `json:"kind"`
	Context string `json:"context,omitempty"`
	Name    string `json:"name,omitempty"`
	Path    string `json:"path,omitempty"`
}

func decodeAspect(s string) (Aspect, error) {
	switch s {
	case "interface":
		return AspectInterface, nil
	case "implementation":
		return AspectImplementation, nil
	default:
		return 0, fmt.Errorf("unknown aspect %q", s)
	}
}

func decodeDesignator(r designatorRecord) (Designator, error) {
	switch r.Kind {
	case "topLevel":
		return TopLevel(r.Name), nil
	case "nominal":
		return Nominal(r.Context), nil
	case "potentialMember":
		return PotentialMember(r.Context), nil
	case "member":
		return Member(r.Context, r.Name), nil
	case "dynamicLookup":
		return DynamicLookup(r.Name), nil
	case "externalDepend":
		return ExternalDepend(r.Path), nil
	case "sourceFileProvide":
		return SourceFileProvide(r.Path), nil
	default:
		return Designator{}, fmt.Errorf("unknown designator kind %q", r.Kind)
	}
}

func decodeKey(r keyRecord) (DependencyKey, error) {
	aspect, err := decodeAspect(r.Aspect)
	if err != nil {
		return DependencyKey{}, err
	}
	designator, err := decodeDesignator(r.Designator)
	if err != nil {
		return DependencyKey{}, err
	}
	return DependencyKey{Aspect: aspect, Designator: designator}, nil
}

// DecodeSourceSummary parses raw JSON bytes into a ParsedSummary for provider. If the
// wire payload does not already carry a sourceFileProvide self-definition for
// provider (some upstream emitters omit it), one is synthesized here — the domain
// layer's job, not the core Integrator's (see integrator.go's doc comment on
// ParsedSummary).
func DecodeSourceSummary(provider ProviderID, raw []byte) (*ParsedSummary, error) {
	var file sourceSummaryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("icplan: decoding summary for %q: %w", provider, err)
	}

	out := &ParsedSummary{}
	hasAnchor := false
	want := anchorKey(provider)
	for _, d := range file.Definitions {
		key, err := decodeKey(d.Key)
		if err != nil {
			return nil, fmt.Errorf("icplan: decoding summary for %q: %w", provider, err)
		}
		if key == want {
			hasAnchor = true
		}
		out.Definitions = append(out.Definitions, ParsedDefinition{Key: key, Fingerprint: d.Fingerprint})
	}
	if !hasAnchor {
		out.Definitions = append(out.Definitions, ParsedDefinition{Key: want})
	}
	for _, u := range file.Uses {
		key, err := decodeKey(u)
		if err != nil {
			return nil, fmt.Errorf("icplan: decoding summary for %q: %w", provider, err)
		}
		out.Uses = append(out.Uses, key)
	}
	return out, nil
}

// EncodeSourceSummary is the inverse of DecodeSourceSummary, used by tests and by
// tools that synthesize summaries. The CLI's demo compiler (InMemoryCompiler) writes no
// summaries.
func EncodeSourceSummary(path string, summary *ParsedSummary) ([]byte, error) {
	file := sourceSummaryFile{Path: path}
	for _, d := range summary.Definitions {
		file.Definitions = append(file.Definitions, definitionRecord{
			Key:         encodeKey(d.Key),
			Fingerprint: d.Fingerprint,
		})
	}
	for _, u := range summary.Uses {
		file.Uses = append(file.Uses, encodeKey(u))
	}
	return json.MarshalIndent(file, "", "  ")
}

func encodeKey(k DependencyKey) keyRecord {
	return keyRecord{
		Aspect: k.Aspect.String(),
		Designator: designatorRecord{
			Kind:    k.Designator.Kind.String(),
			Context: k.Designator.Context,
			Name:    k.Designator.Name,
			Path:    k.Designator.Path,
		},
	}
}

// AferoSummaryReader is the production SummaryReader (integrator.go). By convention a
// ProviderID names the path to its own summary file directly, so reading one is just
// reading that path and decoding the JSON there.
type AferoSummaryReader struct {
	FS afero.Fs
}

func (r *AferoSummaryReader) ReadSummary(provider ProviderID) (*ParsedSummary, error) {
	path := string(provider)
	raw, err := afero.ReadFile(r.FS, path)
	if err != nil {
		return nil, fmt.Errorf("reading summary %q: %w", path, err)
	}
	return DecodeSourceSummary(provider, raw)
}
