// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import (
	"strings"
	"sync"
	"unsafe"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// State is the lifecycle state of an Aligner.
type State int

const (
	// Unopened is the state of a new Aligner.
	Unopened State = iota
	// Opening lasts for the duration of Open.
	Opening
	// Ready is the only state in which Align may be called.
	Ready
	// Failed is terminal; Open did not succeed.
	Failed
	// Closed is terminal; Close has been called.
	Closed
)

var stateNames = [...]string{"unopened", "opening", "ready", "failed", "closed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// argv0 is the program name passed to the engine's option parser.
const argv0 = "bwamem"

// Aligner owns one loaded index and the option set parsed against it.
//
// Methods are safe to call from multiple goroutines, but calls are serialized:
// the engine is not assumed to be reentrant. For parallel alignment open one
// Aligner per worker (see Pool).
type Aligner struct {
	eng engine

	mu     sync.Mutex
	state  State
	prefix string
	index  unsafe.Pointer // guarded by mu; nil unless loaded
	opts   unsafe.Pointer // guarded by mu; nil unless parsed
	refs   []Reference
}

// New creates an unopened Aligner backed by lib.
func New(lib *Library) *Aligner {
	return newAligner(lib.eng)
}

func newAligner(eng engine) *Aligner {
	return &Aligner{eng: eng}
}

// Open is a convenience wrapper that creates an Aligner and opens the index at
// indexPrefix with a whitespace-separated bwa mem option string, e.g.
// "-k 19 -t 4".
func Open(lib *Library, indexPrefix, options string) (*Aligner, error) {
	a := New(lib)
	if err := a.Open(indexPrefix, strings.Fields(options)); err != nil {
		return nil, err
	}
	return a, nil
}

// Open validates the option tokens, loads the index at indexPrefix, and parses
// the options against it. Validation happens before any native call. On
// failure every native resource acquired so far is released and the Aligner
// becomes Failed.
func (a *Aligner) Open(indexPrefix string, options []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Unopened {
		return errors.Wrapf(ErrNotReady, "open %s: aligner is %v", indexPrefix, a.state)
	}
	a.state = Opening
	a.prefix = indexPrefix
	if err := a.open(indexPrefix, options); err != nil {
		a.release()
		a.state = Failed
		return err
	}
	a.state = Ready
	return nil
}

func (a *Aligner) open(indexPrefix string, options []string) error {
	codes := ParseOptionCodes(a.eng.optionCodes())
	if err := codes.Validate(options); err != nil {
		return err
	}
	// The option parser may read the index to size its defaults, so the index
	// must be loaded first.
	if a.index = a.eng.loadIndex(indexPrefix); a.index == nil {
		return errors.Wrapf(ErrIndexLoad, "index %s", indexPrefix)
	}
	a.refs = a.eng.references(a.index)
	log.Debug.Printf("%s: loaded index with %d sequences", indexPrefix, len(a.refs))

	argv := append([]string{argv0}, options...)
	if a.opts = a.eng.parseOptions(argv, a.index); a.opts == nil {
		return errors.Wrapf(ErrOptionParse, "options %q", strings.Join(options, " "))
	}
	return nil
}

// release frees the option set, then the index, whichever exist. REQUIRES:
// a.mu is held.
func (a *Aligner) release() {
	if a.opts != nil {
		a.eng.freeOptions(a.opts)
		a.opts = nil
		log.Debug.Printf("%s: freed options", a.prefix)
	}
	if a.index != nil {
		a.eng.destroyIndex(a.index)
		a.index = nil
		log.Debug.Printf("%s: destroyed index", a.prefix)
	}
}

// State returns the current lifecycle state.
func (a *Aligner) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// References returns the sequences of the loaded index, indexed by
// Hit.RefID. It returns nil unless the Aligner is Ready. The slice is a copy;
// changing it does not affect later alignments.
func (a *Aligner) References() []Reference {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Ready {
		return nil
	}
	return append([]Reference(nil), a.refs...)
}

// Align aligns one query sequence. Bytes outside the nucleotide alphabet are
// passed to the engine unchanged. A query that does not align yields an empty
// Result and no error.
func (a *Aligner) Align(seq string) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != Ready {
		return nil, errors.Wrapf(ErrNotReady, "align: aligner is %v", a.state)
	}
	if len(seq) == 0 {
		return Result{}, nil
	}
	if strings.IndexByte(seq, 0) >= 0 {
		return nil, errors.Wrap(ErrInvalidSequence, "sequence contains a NUL byte")
	}
	alns := a.eng.align(a.opts, a.index, seq)
	if alns == nil {
		return Result{}, nil
	}
	recs := func() []record {
		defer a.eng.freeAlignments(alns)
		return a.eng.records(alns)
	}()

	result := make(Result, 0, len(recs))
	for i, r := range recs {
		hit, err := decodeRecord(r, a.refs, len(seq))
		if err != nil {
			return nil, errors.Wrapf(err, "%s: hit %d", a.prefix, i)
		}
		result = append(result, hit)
	}
	return result, nil
}

// Close releases the native option set and index. It is safe to call more
// than once, and on an Aligner whose Open failed.
func (a *Aligner) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.release()
	a.state = Closed
	return nil
}
