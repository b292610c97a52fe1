// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides byte-array kernels over ASCII base sequences, as
// found in .fa/.fq/.bam records. Plain byte moves are delegated to
// github.com/grailbio/base/simd.
package biosimd
