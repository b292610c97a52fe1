// Package fastq reads FASTQ files one read at a time.
package fastq

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
)

// maxLineSize bounds a single FASTQ line. Long-read queries can exceed
// bufio.Scanner's default of 64KiB.
const maxLineSize = 16 * 1024 * 1024

// A Read is a FASTQ read, comprising an ID, sequence, line 3
// ("unknown"), and a quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

// Name returns the read name: the ID without its leading '@' and without
// the comment that follows the first space or tab.
func (r *Read) Name() string {
	id := r.ID
	if len(id) > 0 && id[0] == '@' {
		id = id[1:]
	}
	for i := 0; i < len(id); i++ {
		if id[i] == ' ' || id[i] == '\t' {
			return id[:i]
		}
	}
	return id
}

var errEOF = errors.New("eof")

// Scanner reads FASTQ records. It requires ID lines to begin with "@" and
// line 3 to begin with "+", and that the sequence and quality strings have
// the same length. Blank lines between records are skipped. Scanners are not
// threadsafe.
type Scanner struct {
	b    *bufio.Scanner
	err  error
	line int
}

// NewScanner constructs a new Scanner that reads raw FASTQ data from the
// provided reader.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(nil, maxLineSize)
	return &Scanner{b: b}
}

// Scan the next read into the provided read. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
func (f *Scanner) Scan(read *Read) bool {
	if f.err != nil {
		return false
	}
	var id []byte
	for {
		if !f.b.Scan() {
			if f.err = f.b.Err(); f.err == nil {
				f.err = errEOF
			}
			return false
		}
		f.line++
		if id = f.trimmed(); len(id) > 0 {
			break
		}
	}
	if id[0] != '@' {
		f.err = errors.Wrapf(ErrInvalid, "line %d: read ID must start with '@'", f.line)
		return false
	}
	read.ID = string(id)
	if !f.scan() {
		return false
	}
	read.Seq = string(f.trimmed())
	if !f.scan() {
		return false
	}
	unk := f.trimmed()
	if len(unk) == 0 || unk[0] != '+' {
		f.err = errors.Wrapf(ErrInvalid, "line %d: separator must start with '+'", f.line)
		return false
	}
	read.Unk = string(unk)
	if !f.scan() {
		return false
	}
	read.Qual = string(f.trimmed())
	if len(read.Qual) != len(read.Seq) {
		f.err = errors.Wrapf(ErrInvalid, "line %d: %d quality values for %d bases", f.line, len(read.Qual), len(read.Seq))
		return false
	}
	return true
}

func (f *Scanner) trimmed() []byte {
	return bytes.TrimRight(f.b.Bytes(), "\r")
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errors.Wrapf(ErrShort, "after line %d", f.line)
		}
		return false
	}
	f.line++
	return true
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}
