package bam

import (
	"bytes"

	"github.com/grailbio/base/simd"
	"github.com/grailbio/bwamem/aligner"
	"github.com/grailbio/bwamem/biosimd"
	"github.com/grailbio/hts/sam"
	"github.com/pkg/errors"
)

// Query is one aligned sequence, as read from the input.
type Query struct {
	Name string
	Seq  string
	// Qual holds phred+33 base qualities, or is empty if none are known.
	Qual string
}

var (
	tagNM = sam.NewTag("NM")
	tagAS = sam.NewTag("AS")
	tagXA = sam.NewTag("XA")
)

// Records converts the alignment result of q to SAM records in result order.
// A query without hits yields a single unmapped record.
//
// Flags follow bwa mem: the first hit that is neither secondary nor
// supplementary is the primary record, and any further such hits are marked
// supplementary. Secondary records carry no SEQ or QUAL. Otherwise SEQ and
// QUAL are given in reference orientation, minus hard-clipped bases.
func Records(h *sam.Header, q Query, result aligner.Result) ([]*sam.Record, error) {
	if q.Qual != "" && len(q.Qual) != len(q.Seq) {
		return nil, errors.Errorf("%s: %d quality values for %d bases", q.Name, len(q.Qual), len(q.Seq))
	}
	if len(result) == 0 {
		seq := []byte(q.Seq)
		rec, err := newRecord(q.Name, nil, -1, 0, nil, sam.Unmapped, seq, phred(q.Qual, len(seq)), nil)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: unmapped record", q.Name)
		}
		return []*sam.Record{rec}, nil
	}

	refs := h.Refs()
	recs := make([]*sam.Record, 0, len(result))
	havePrimary := false
	for i, hit := range result {
		if hit.RefID < 0 || hit.RefID >= len(refs) {
			return nil, errors.Errorf("%s: hit %d: reference id %d not in header", q.Name, i, hit.RefID)
		}
		var flags sam.Flags
		if hit.Strand == aligner.Reverse {
			flags |= sam.Reverse
		}
		switch {
		case hit.Secondary:
			flags |= sam.Secondary
		case hit.Supplementary || havePrimary:
			flags |= sam.Supplementary
		default:
			havePrimary = true
		}
		var seq, qual []byte
		if !hit.Secondary {
			var err error
			if seq, qual, err = orient(q, hit); err != nil {
				return nil, errors.Wrapf(err, "%s: hit %d", q.Name, i)
			}
		}
		aux, err := auxFields(hit)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: hit %d", q.Name, i)
		}
		rec, err := newRecord(q.Name, refs[hit.RefID], hit.Pos, hit.MapQ, hit.Cigar, flags, seq, qual, aux)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: hit %d", q.Name, i)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// newRecord builds an unpaired record. sam.NewRecord rejects an empty SEQ, so
// records without bases are built directly; both writers emit "*" for them.
func newRecord(name string, ref *sam.Reference, pos int, mapq byte, cigar sam.Cigar, flags sam.Flags, seq, qual []byte, aux []sam.Aux) (*sam.Record, error) {
	if len(seq) > 0 {
		rec, err := sam.NewRecord(name, ref, nil, pos, -1, 0, mapq, cigar, seq, qual, aux)
		if err != nil {
			return nil, err
		}
		rec.Flags = flags
		return rec, nil
	}
	if len(name) == 0 || len(name) > 254 {
		return nil, errors.New("sam: name absent or too long")
	}
	if ref == nil && pos != -1 {
		return nil, errors.New("sam: specified position != -1 without reference")
	}
	return &sam.Record{
		Name:      name,
		Ref:       ref,
		Pos:       pos,
		MapQ:      mapq,
		Cigar:     cigar,
		Flags:     flags,
		MatePos:   -1,
		Qual:      []byte{},
		AuxFields: aux,
	}, nil
}

func auxFields(hit aligner.Hit) ([]sam.Aux, error) {
	nm, err := sam.NewAux(tagNM, hit.EditDistance)
	if err != nil {
		return nil, err
	}
	as, err := sam.NewAux(tagAS, hit.Score)
	if err != nil {
		return nil, err
	}
	aux := []sam.Aux{nm, as}
	if hit.AltHits != "" {
		xa, err := sam.NewAux(tagXA, hit.AltHits)
		if err != nil {
			return nil, err
		}
		aux = append(aux, xa)
	}
	return aux, nil
}

// orient returns the query bases and qualities as they appear in the record
// for hit.
func orient(q Query, hit aligner.Hit) (seq, qual []byte, err error) {
	seq = []byte(q.Seq)
	qual = phred(q.Qual, len(seq))
	if hit.Strand == aligner.Reverse {
		biosimd.ReverseComp8Inplace(seq)
		simd.Reverse8Inplace(qual)
	}
	lead, trail := hardClips(hit.Cigar)
	if lead+trail > len(seq) {
		return nil, nil, errors.Errorf("cigar %v clips more than the %d query bases", hit.Cigar, len(seq))
	}
	return seq[lead : len(seq)-trail], qual[lead : len(qual)-trail], nil
}

// hardClips returns the lengths of the leading and trailing hard clips.
func hardClips(cigar sam.Cigar) (lead, trail int) {
	if len(cigar) == 0 {
		return 0, 0
	}
	if co := cigar[0]; co.Type() == sam.CigarHardClipped {
		lead = co.Len()
	}
	if len(cigar) > 1 {
		if co := cigar[len(cigar)-1]; co.Type() == sam.CigarHardClipped {
			trail = co.Len()
		}
	}
	return lead, trail
}

// phred converts phred+33 qualities to raw values. An empty string yields n
// 0xff bytes, the BAM encoding of a missing QUAL.
func phred(qual string, n int) []byte {
	if qual == "" {
		return bytes.Repeat([]byte{0xff}, n)
	}
	b := make([]byte, len(qual))
	for i := 0; i < len(qual); i++ {
		b[i] = qual[i] - 33
	}
	return b
}
