// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import "unsafe"

// engine is the native boundary. Handles are opaque; nil is the engine's
// failure (or "no hits") sentinel. Every method maps to one native entry point,
// except references and records, which copy native data into Go memory.
type engine interface {
	// optionCodes returns the getopt-style allow-list of option codes.
	optionCodes() string
	// loadIndex loads the index at prefix. It returns nil on failure.
	loadIndex(prefix string) unsafe.Pointer
	// references copies the annotation table of a loaded index.
	references(idx unsafe.Pointer) []Reference
	// destroyIndex releases a loaded index.
	destroyIndex(idx unsafe.Pointer)
	// parseOptions builds an option set from argv, argv[0] being the program
	// name. It may consult idx. It returns nil on failure.
	parseOptions(argv []string, idx unsafe.Pointer) unsafe.Pointer
	// freeOptions releases an option set.
	freeOptions(opt unsafe.Pointer)
	// align aligns one sequence. It returns nil if nothing aligned, otherwise
	// a collection that must be passed to freeAlignments exactly once.
	align(opt, idx unsafe.Pointer, seq string) unsafe.Pointer
	// records copies the records of an alignment collection.
	records(alns unsafe.Pointer) []record
	// freeAlignments releases an alignment collection.
	freeAlignments(alns unsafe.Pointer)
}
