package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/bwamem/aligner"
	"github.com/grailbio/bwamem/encoding/bam"
	"github.com/grailbio/bwamem/encoding/fasta"
	"github.com/grailbio/bwamem/encoding/fastq"
	"github.com/klauspost/compress/gzip"
)

// readQueriesFromPath reads queries from a FASTA or FASTQ file, optionally
// gzip-compressed.
func readQueriesFromPath(ctx context.Context, path string) (queries []bam.Query, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.E(err, "open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", path)
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, errors.E(err, "gunzip", path)
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	if queries, err = readQueries(reader); err != nil {
		return nil, errors.E(err, "read", path)
	}
	return queries, nil
}

// readQueries reads FASTA or FASTQ data. The format is decided by the first
// non-blank byte: '>' for FASTA, '@' for FASTQ.
func readQueries(r io.Reader) ([]bam.Query, error) {
	br := bufio.NewReader(r)
	var first byte
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			first = b
			break
		}
	}
	if err := br.UnreadByte(); err != nil {
		return nil, err
	}
	var queries []bam.Query
	switch first {
	case '>':
		s := fasta.NewScanner(br)
		var rec fasta.Record
		for s.Scan(&rec) {
			queries = append(queries, bam.Query{Name: rec.Name, Seq: rec.Seq})
		}
		return queries, s.Err()
	case '@':
		s := fastq.NewScanner(br)
		var read fastq.Read
		for s.Scan(&read) {
			queries = append(queries, bam.Query{Name: read.Name(), Seq: read.Seq, Qual: read.Qual})
		}
		return queries, s.Err()
	}
	return nil, fmt.Errorf("unrecognized query format: first byte %q, want '>' or '@'", first)
}

// collectQueries splits args into bwa mem options and query sequences, then
// appends the queries of c.Input. Options from c come before those in args.
// It fails if there is nothing to align.
func collectQueries(ctx context.Context, codes aligner.OptionCodes, c config, args []string) (options []string, queries []bam.Query, err error) {
	options, seqs := codes.Split(args)
	options = append(strings.Fields(c.Options), options...)
	queries = make([]bam.Query, len(seqs))
	for i, seq := range seqs {
		queries[i].Seq = seq
	}
	if c.Input != "" {
		q, err := readQueriesFromPath(ctx, c.Input)
		if err != nil {
			return nil, nil, err
		}
		queries = append(queries, q...)
	}
	if len(queries) == 0 {
		return nil, nil, errors.E("no query sequences given on the command line or in -input")
	}
	nameQueries(queries)
	return options, queries, nil
}

// nameQueries gives every unnamed query the name "seq<i>", i being its
// 1-based input number.
func nameQueries(queries []bam.Query) {
	for i := range queries {
		if queries[i].Name == "" {
			queries[i].Name = fmt.Sprintf("seq%d", i+1)
		}
	}
}
