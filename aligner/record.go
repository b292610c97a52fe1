// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package aligner

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Reference describes one sequence of a loaded index.
type Reference struct {
	// Name is the sequence name, as recorded by bwa index.
	Name string
	// Len is the sequence length in bases.
	Len int
	// Offset is the position of the sequence in the packed reference.
	Offset int64
}

// Strand is the orientation of a hit relative to the reference.
type Strand uint8

const (
	// Forward means the query aligns as given.
	Forward Strand = iota
	// Reverse means the reverse complement of the query aligns.
	Reverse
)

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Hit is one reported alignment of a query.
type Hit struct {
	// RefID indexes Aligner.References().
	RefID int
	// RefName is the name of the reference sequence.
	RefName string
	Strand  Strand
	// Pos is the 0-based leftmost mapping position on the forward strand.
	Pos  int
	MapQ byte
	// Cigar is in reference orientation. Operations are limited to M, I, D, S
	// and H.
	Cigar sam.Cigar
	// EditDistance is the NM value: mismatches plus inserted and deleted bases.
	EditDistance int
	// Score is the local alignment score.
	Score int
	// Alt is set when the hit lies on an ALT contig.
	Alt           bool
	Secondary     bool
	Supplementary bool
	// AltHits is bwa's XA string of alternative hits, or empty.
	AltHits string
}

// String renders the hit as
// "name<TAB>strand<TAB>pos<TAB>mapq<TAB>cigar<TAB>NM".
func (h Hit) String() string {
	return fmt.Sprintf("%s\t%v\t%d\t%d\t%v\t%d", h.RefName, h.Strand, h.Pos, h.MapQ, h.Cigar, h.EditDistance)
}

// Result is the ordered list of hits for one query. An empty Result means the
// query did not align.
type Result []Hit

// record is a Go copy of one native mem_aln_t. It holds no native memory.
type record struct {
	refID int32
	pos   int64
	flag  int32
	// packed holds the bitfields is_rev:1, is_alt:1, mapq:8, NM:22, lowest bit
	// first.
	packed uint32
	cigar  []uint32
	xa     string
	score  int32
}

// Bits of record.flag.
const (
	flagSecondary     = 0x100
	flagSupplementary = 0x800
)

// bwaCigarOps maps bwa's CIGAR operation codes ("MIDSH" => 01234) to SAM
// operation types. bwa's numbering differs from BAM's past 'D'.
var bwaCigarOps = [...]sam.CigarOpType{
	sam.CigarMatch,
	sam.CigarInsertion,
	sam.CigarDeletion,
	sam.CigarSoftClipped,
	sam.CigarHardClipped,
}

// decodeCigar unpacks bwa CIGAR words, each opLen<<4|op.
func decodeCigar(words []uint32) (sam.Cigar, error) {
	cigar := make(sam.Cigar, len(words))
	for i, w := range words {
		op := w & 0xf
		if int(op) >= len(bwaCigarOps) {
			return nil, errors.Wrapf(ErrMalformedResult, "cigar operation %d: invalid code %d", i, op)
		}
		cigar[i] = sam.NewCigarOp(bwaCigarOps[op], int(w>>4))
	}
	return cigar, nil
}

// queryLen returns the number of query bases the CIGAR accounts for, counting
// clipped bases of either kind.
func queryLen(cigar sam.Cigar) int {
	n := 0
	for _, co := range cigar {
		switch co.Type() {
		case sam.CigarMatch, sam.CigarInsertion, sam.CigarSoftClipped, sam.CigarHardClipped:
			n += co.Len()
		}
	}
	return n
}

// decodeRecord converts a native record to a Hit. It is a pure function of its
// arguments. seqLen is the length of the query the record was produced for.
func decodeRecord(r record, refs []Reference, seqLen int) (Hit, error) {
	if r.refID < 0 || int(r.refID) >= len(refs) {
		return Hit{}, errors.Wrapf(ErrMalformedResult, "reference id %d out of range [0, %d)", r.refID, len(refs))
	}
	cigar, err := decodeCigar(r.cigar)
	if err != nil {
		return Hit{}, err
	}
	if n := queryLen(cigar); n != seqLen {
		return Hit{}, errors.Wrapf(ErrMalformedResult, "cigar %v spans %d query bases, query has %d", cigar, n, seqLen)
	}
	h := Hit{
		RefID:         int(r.refID),
		RefName:       refs[r.refID].Name,
		Strand:        Forward,
		Pos:           int(r.pos),
		MapQ:          byte((r.packed >> 2) & 0xff),
		Cigar:         cigar,
		EditDistance:  int(r.packed >> 10),
		Score:         int(r.score),
		Alt:           (r.packed>>1)&1 != 0,
		Secondary:     r.flag&flagSecondary != 0,
		Supplementary: r.flag&flagSupplementary != 0,
		AltHits:       r.xa,
	}
	if r.packed&1 != 0 {
		h.Strand = Reverse
	}
	return h, nil
}
