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
	"github.com/spf13/afero"
)

// DiskInterface is the minimal filesystem surface the change detector and the output
// file map checks need: stat an input's mtime, and check an output exists. It is
// implemented over afero.Fs so tests substitute afero.NewMemMapFs() for the real
// filesystem instead of touching tempdirs.
type DiskInterface interface {
	// ModTimeSeconds returns the whole-second mtime of path, or (0, false) if it does
	// not exist.
	ModTimeSeconds(path string) (int64, bool)
	// Exists reports whether path is present on disk.
	Exists(path string) bool
}

// AferoDisk is the production DiskInterface, backed by an afero.Fs.
type AferoDisk struct {
	FS afero.Fs
}

// NewAferoDisk wraps fs as a DiskInterface.
func NewAferoDisk(fs afero.Fs) *AferoDisk {
	return &AferoDisk{FS: fs}
}

func (d *AferoDisk) ModTimeSeconds(path string) (int64, bool) {
	info, err := d.FS.Stat(path)
	if err != nil {
		return 0, false
	}
	return wholeSeconds(info.ModTime()), true
}

func (d *AferoDisk) Exists(path string) bool {
	ok, err := afero.Exists(d.FS, path)
	return err == nil && ok
}
