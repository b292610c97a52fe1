// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// bio-bwa aligns query sequences against a bwa index by calling into the
// bwa mem shared library.
//
// Usage: bio-bwa align [flags] <index> <sequence>... [bwa mem options]
package main

import (
	"github.com/grailbio/base/log"
	"v.io/x/lib/cmdline"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-bwa",
			Short:    "Align sequences with the bwa mem library",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdAlign(),
			},
		})
}
