// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidOption is the cause of an *OptionError: an option code that the
	// engine does not advertise.
	ErrInvalidOption = errors.New("invalid option")
	// ErrIndexLoad is returned when the engine fails to load an index.
	ErrIndexLoad = errors.New("failed to load bwa index")
	// ErrOptionParse is returned when the engine rejects an option set that
	// passed local validation.
	ErrOptionParse = errors.New("failed to parse options")
	// ErrMalformedResult is returned when a native alignment record violates a
	// structural invariant.
	ErrMalformedResult = errors.New("malformed alignment result")
	// ErrNotReady is returned when an operation is invoked on an Aligner that
	// is not in the state the operation requires.
	ErrNotReady = errors.New("aligner not ready")
	// ErrLibraryNotFound is returned when no native library can be resolved.
	ErrLibraryNotFound = errors.New("bwa library not found")
	// ErrInvalidSequence is returned for query sequences that cannot be passed
	// across the C boundary intact.
	ErrInvalidSequence = errors.New("invalid query sequence")
)

// OptionError reports an option token whose code is not in the engine's
// allow-list.
type OptionError struct {
	// Option is the offending token, as given.
	Option string
	// Allowed is the allow-list with the "takes a value" markers removed.
	Allowed string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option '%s' is not a valid option (allowed: %s)",
		e.Option, strings.Join(strings.Split(e.Allowed, ""), " "))
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *OptionError) Cause() error { return ErrInvalidOption }

// Unwrap lets the standard library errors.Is see ErrInvalidOption.
func (e *OptionError) Unwrap() error { return ErrInvalidOption }
