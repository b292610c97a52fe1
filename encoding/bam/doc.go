// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package bam converts bwa mem alignment results to SAM records and writes
// them as SAM or BAM. Records and headers are the types of
// github.com/grailbio/hts/sam.
package bam
