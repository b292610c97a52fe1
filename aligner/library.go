// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// DefaultLibraryName is the file name probed in LibraryOpts.SearchPath when
// no explicit path is configured.
const DefaultLibraryName = "libbwamem.so"

// LibraryOpts configures how the native bwa library is located. Resolution
// depends only on these fields; the process environment is not consulted.
type LibraryOpts struct {
	// Path is the shared object to load. If set, SearchPath is ignored.
	Path string `mapstructure:"path"`
	// Name is the file name looked up in each SearchPath directory. Defaults
	// to DefaultLibraryName.
	Name string `mapstructure:"name"`
	// SearchPath lists directories to probe, in order.
	SearchPath []string `mapstructure:"search-path"`
}

// Resolve returns the path of the library these options select.
func (o LibraryOpts) Resolve() (string, error) {
	if o.Path != "" {
		if _, err := os.Stat(o.Path); err != nil {
			return "", errors.Wrapf(ErrLibraryNotFound, "%v", err)
		}
		return filepath.Abs(o.Path)
	}
	name := o.Name
	if name == "" {
		name = DefaultLibraryName
	}
	var tried []string
	for _, dir := range o.SearchPath {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return filepath.Abs(candidate)
		}
		tried = append(tried, candidate)
	}
	if len(tried) == 0 {
		return "", errors.Wrap(ErrLibraryNotFound, "neither a library path nor a search path is configured")
	}
	return "", errors.Wrapf(ErrLibraryNotFound, "tried %s", strings.Join(tried, ", "))
}

// Library is a loaded native bwa library.
type Library struct {
	path string
	eng  engine
}

var (
	librariesMu sync.Mutex
	libraries   = map[string]*Library{}
)

// LoadLibrary resolves and loads the native library. Each resolved path is
// loaded at most once per process; later calls return the same *Library.
func LoadLibrary(opts LibraryOpts) (*Library, error) {
	path, err := opts.Resolve()
	if err != nil {
		return nil, err
	}
	librariesMu.Lock()
	defer librariesMu.Unlock()
	if lib, ok := libraries[path]; ok {
		return lib, nil
	}
	eng, err := newNativeEngine(path)
	if err != nil {
		return nil, err
	}
	lib := &Library{path: path, eng: eng}
	libraries[path] = lib
	return lib, nil
}

// Path returns the resolved path of the shared object.
func (l *Library) Path() string { return l.path }

// OptionCodes returns the option allow-list the library publishes.
func (l *Library) OptionCodes() OptionCodes {
	return ParseOptionCodes(l.eng.optionCodes())
}
