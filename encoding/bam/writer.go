package bam

import (
	"io"

	htsbam "github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Format is an alignment output format.
type Format int

const (
	// SAM is uncompressed text.
	SAM Format = iota
	// BAM is BGZF-compressed binary.
	BAM
)

// ParseFormat parses "sam" or "bam".
func ParseFormat(s string) (Format, error) {
	switch s {
	case "sam":
		return SAM, nil
	case "bam":
		return BAM, nil
	}
	return 0, errors.Errorf("unknown alignment format %q, want sam or bam", s)
}

func (f Format) String() string {
	if f == BAM {
		return "bam"
	}
	return "sam"
}

// WriteOpts configures a Writer.
type WriteOpts struct {
	Format Format
	// Level is the BGZF compression level, one of the
	// github.com/klauspost/compress/gzip levels. BAM only.
	Level int
	// Parallelism is the number of compression goroutines. BAM only. Values
	// below 1 mean one.
	Parallelism int
}

// DefaultWriteOpts writes SAM.
var DefaultWriteOpts = WriteOpts{Format: SAM, Level: gzip.DefaultCompression, Parallelism: 1}

type recordWriter interface {
	Write(*sam.Record) error
}

// Writer writes a header followed by records in SAM or BAM format.
type Writer struct {
	w     recordWriter
	close func() error
	n     int
}

// NewWriter writes h to w and returns a Writer for the records that follow.
// Close must be called to flush BAM output; it does not close w.
func NewWriter(w io.Writer, h *sam.Header, opts WriteOpts) (*Writer, error) {
	switch opts.Format {
	case SAM:
		sw, err := sam.NewWriter(w, h, sam.FlagDecimal)
		if err != nil {
			return nil, errors.Wrap(err, "new sam writer")
		}
		return &Writer{w: sw, close: func() error { return nil }}, nil
	case BAM:
		if opts.Level < gzip.HuffmanOnly || opts.Level > gzip.BestCompression {
			return nil, errors.Errorf("invalid compression level %d", opts.Level)
		}
		wc := opts.Parallelism
		if wc < 1 {
			wc = 1
		}
		bw, err := htsbam.NewWriterLevel(w, h, opts.Level, wc)
		if err != nil {
			return nil, errors.Wrap(err, "new bam writer")
		}
		return &Writer{w: bw, close: bw.Close}, nil
	}
	return nil, errors.Errorf("unknown format %v", opts.Format)
}

// Write writes recs in order.
func (w *Writer) Write(recs ...*sam.Record) error {
	for _, r := range recs {
		if err := w.w.Write(r); err != nil {
			return errors.Wrapf(err, "record %d (%s)", w.n, r.Name)
		}
		w.n++
	}
	return nil
}

// Close flushes any buffered output.
func (w *Writer) Close() error {
	return w.close()
}
