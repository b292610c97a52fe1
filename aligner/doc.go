// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package aligner binds the BWA-MEM short read aligner, loaded at runtime from
// a shared object, to Go.
//
// The native library owns all of the alignment logic. This package owns the
// lifetime of the native index and option handles, validates option strings
// before they reach the engine, and decodes native alignment records into Go
// values. No native pointer escapes this package.
//
// Example:
//
//   lib, err := aligner.LoadLibrary(aligner.LibraryOpts{Path: "/opt/bwa/libbwamem.so"})
//   ...
//   a, err := aligner.Open(lib, "/data/hg38.fa", "-k 19 -t 4")
//   ...
//   defer a.Close()
//   result, err := a.Align("ACGTTGCA...")
//   for _, hit := range result {
//     fmt.Println(hit.RefName, hit.Strand, hit.Pos, hit.Cigar)
//   }
//
// An Aligner is a single session: one index, one option set. It is not
// assumed that the native align entry point is reentrant, so calls on one
// Aligner are serialized. Use a Pool to align in parallel; each of its
// workers loads its own copy of the index.
package aligner
