// Package fasta reads FASTA files one record at a time. FASTA files consist
// of a number of named sequences that may be interrupted by newlines:
//
// >query1 first read
// ACGTAC
// GAGGAC
// >query2
// ACGT
//
// A record's name is the stretch of characters after '>' up to the first
// space or tab; the rest of the header line is ignored.
package fasta

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// maxLineSize bounds a single FASTA line; whole chromosomes on one line are
// not expected in query files.
const maxLineSize = 64 * 1024 * 1024

// ErrInvalid is returned when sequence data appears before the first header.
var ErrInvalid = errors.New("invalid FASTA file")

var errEOF = errors.New("eof")

// Record is one named FASTA sequence.
type Record struct {
	Name string
	Seq  string
}

// Scanner reads FASTA records in file order. Multi-line sequences are joined.
// Blank lines are skipped. Scanners are not threadsafe.
type Scanner struct {
	b    *bufio.Scanner
	err  error
	line int

	// The record whose header has been read but not yet returned.
	inRecord bool
	name     string
	seq      strings.Builder
}

// NewScanner constructs a Scanner that reads FASTA data from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineSize)
	return &Scanner{b: b}
}

// Scan reads the next record into rec. It returns false at the end of the
// stream or on error; Err distinguishes the two. Once Scan returns false it
// never returns true again.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	for s.b.Scan() {
		s.line++
		line := bytes.TrimRight(s.b.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			name := seqName(line[1:])
			if s.inRecord {
				s.emit(rec)
				s.name = name
				return true
			}
			s.inRecord, s.name = true, name
			continue
		}
		if !s.inRecord {
			s.err = errors.Wrapf(ErrInvalid, "line %d: sequence data before the first header", s.line)
			return false
		}
		s.seq.Write(line)
	}
	if s.err = s.b.Err(); s.err != nil {
		s.err = errors.Wrapf(s.err, "line %d", s.line+1)
		return false
	}
	s.err = errEOF
	if s.inRecord {
		s.emit(rec)
		s.inRecord = false
		return true
	}
	return false
}

func (s *Scanner) emit(rec *Record) {
	rec.Name = s.name
	rec.Seq = s.seq.String()
	s.seq.Reset()
}

func seqName(header []byte) string {
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}
	return string(header)
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// ReadAll returns every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	var (
		recs []Record
		rec  Record
	)
	s := NewScanner(r)
	for s.Scan(&rec) {
		recs = append(recs, rec)
	}
	return recs, s.Err()
}
