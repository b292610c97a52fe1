// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build !cgo
// +build !cgo

package aligner

import "github.com/pkg/errors"

// newNativeEngine fails when compiled without cgo.
func newNativeEngine(path string) (engine, error) {
	return nil, errors.Errorf("%s: loading the bwa library requires cgo", path)
}
