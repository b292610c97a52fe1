// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import (
	errorreporter "github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// Pool is a set of independent Aligners over the same on-disk index. Each
// Aligner holds its own copy of the index in memory and is used by exactly one
// worker at a time.
type Pool struct {
	aligners []*Aligner
}

// OpenPool opens n Aligners on indexPrefix with the given option tokens. If any
// of them fails to open, the ones that did open are closed.
func OpenPool(lib *Library, indexPrefix string, options []string, n int) (*Pool, error) {
	return openPool(func() *Aligner { return New(lib) }, indexPrefix, options, n)
}

func openPool(newFn func() *Aligner, indexPrefix string, options []string, n int) (*Pool, error) {
	if n <= 0 {
		return nil, errors.Errorf("pool size must be positive, got %d", n)
	}
	p := &Pool{aligners: make([]*Aligner, n)}
	for i := range p.aligners {
		p.aligners[i] = newFn()
	}
	err := traverse.Each(n, func(i int) error {
		return p.aligners[i].Open(indexPrefix, options)
	})
	if err != nil {
		if cerr := p.Close(); cerr != nil {
			log.Error.Printf("%s: close after failed open: %v", indexPrefix, cerr)
		}
		return nil, err
	}
	log.Debug.Printf("%s: opened %d aligners", indexPrefix, n)
	return p, nil
}

// Len returns the number of Aligners in the pool.
func (p *Pool) Len() int { return len(p.aligners) }

// References returns a copy of the sequences of the index, as seen by the
// first Aligner.
func (p *Pool) References() []Reference {
	return p.aligners[0].References()
}

// AlignAll aligns seqs in parallel, one worker per Aligner. Worker i handles
// seqs[i], seqs[i+n], ... The returned results are in input order. The first
// error stops further work on the worker that hit it and is returned.
func (p *Pool) AlignAll(seqs []string) ([]Result, error) {
	results := make([]Result, len(seqs))
	n := len(p.aligners)
	err := traverse.Each(n, func(w int) error {
		a := p.aligners[w]
		for i := w; i < len(seqs); i += n {
			r, err := a.Align(seqs[i])
			if err != nil {
				return errors.Wrapf(err, "query %d", i+1)
			}
			results[i] = r
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Close closes every Aligner and returns the first error.
func (p *Pool) Close() error {
	var e errorreporter.Once
	for _, a := range p.aligners {
		e.Set(a.Close())
	}
	return e.Err()
}
