package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bwamem/aligner"
	"github.com/grailbio/bwamem/encoding/bam"
	"v.io/x/lib/cmdline"
)

type alignFlags struct {
	config      *string
	lib         *string
	libDir      *string
	input       *string
	format      *string
	output      *string
	parallelism *int
	level       *int
}

func newCmdAlign() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "align",
		Short: "Align sequences against a bwa index",
		Long: `
Align loads the bwa mem shared library, opens the index and aligns each
sequence given on the command line, followed by those of -input.

Arguments after the index that are bwa mem options (as listed by the
library), together with their values, are passed to bwa mem. For example:

  bio-bwa align -lib-dir /opt/bwa/lib ref.fa ACGTACGTTAGC -k 19 -T 20

prints, for each input i, "Found N alignments for input i." followed by one
tab-separated line per alignment: reference, strand, 0-based position,
mapping quality, CIGAR and edit distance.`,
		ArgsName: "index [sequence|bwa option]...",
	}
	flags := alignFlags{
		config:      cmd.Flags.String("config", "", "YAML settings file. Flags given explicitly override its values."),
		lib:         cmd.Flags.String("lib", "", "Path of the bwa mem shared library. Overrides -lib-dir."),
		libDir:      cmd.Flags.String("lib-dir", "", "Comma-separated directories searched for "+aligner.DefaultLibraryName+"."),
		input:       cmd.Flags.String("input", "", "FASTA or FASTQ file of additional queries; may be gzipped."),
		format:      cmd.Flags.String("format", "text", "Output format: text, sam or bam."),
		output:      cmd.Flags.String("output", "-", `Output path. "-" means stdout.`),
		parallelism: cmd.Flags.Int("parallelism", 1, "Number of aligners, each holding its own copy of the index."),
		level:       cmd.Flags.Int("compression-level", -1, "BAM compression level."),
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 1 {
			return fmt.Errorf("align takes an index prefix, but got %v", argv)
		}
		c, err := loadConfig(*flags.config)
		if err != nil {
			return err
		}
		set := map[string]bool{}
		cmd.Flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
		c = flags.apply(c, set)
		if err := c.validate(); err != nil {
			return err
		}
		return align(env.Stdout, c, argv[0], argv[1:])
	})
	return cmd
}

// apply overrides c with the flags in set.
func (f alignFlags) apply(c config, set map[string]bool) config {
	if set["lib-dir"] {
		c.Library.Path = ""
		c.Library.SearchPath = splitList(*f.libDir)
	}
	if set["lib"] {
		c.Library.Path = *f.lib
	}
	if set["input"] {
		c.Input = *f.input
	}
	if set["format"] {
		c.Format = *f.format
	}
	if set["output"] {
		c.Output = *f.output
	}
	if set["parallelism"] {
		c.Parallelism = *f.parallelism
	}
	if set["compression-level"] {
		c.CompressionLevel = *f.level
	}
	return c
}

func align(stdout io.Writer, c config, indexPrefix string, args []string) (err error) {
	ctx := vcontext.Background()
	lib, err := aligner.LoadLibrary(c.Library)
	if err != nil {
		return err
	}
	log.Debug.Printf("using %s", lib.Path())

	options, queries, err := collectQueries(ctx, lib.OptionCodes(), c, args)
	if err != nil {
		return err
	}

	pool, err := aligner.OpenPool(lib, indexPrefix, options, c.Parallelism)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	seqs := make([]string, len(queries))
	for i, q := range queries {
		seqs[i] = q.Seq
	}
	results, err := pool.AlignAll(seqs)
	if err != nil {
		return err
	}
	log.Printf("%s: aligned %d queries with %d aligners", indexPrefix, len(queries), pool.Len())

	out := stdout
	if c.Output != "-" {
		var f file.File
		if f, err = file.Create(ctx, c.Output); err != nil {
			return errors.E(err, "create", c.Output)
		}
		defer func() {
			if cerr := f.Close(ctx); cerr != nil && err == nil {
				err = errors.E(cerr, "close", c.Output)
			}
		}()
		out = f.Writer(ctx)
	}
	commandLine := strings.Join(os.Args, " ")
	if err := writeResults(out, c, pool.References(), queries, results, commandLine); err != nil {
		return errors.E(err, "write", c.Output)
	}
	return nil
}

// writeResults writes results[i], the alignments of queries[i], in the
// configured format.
func writeResults(w io.Writer, c config, refs []aligner.Reference, queries []bam.Query, results []aligner.Result, commandLine string) error {
	if c.Format == "text" {
		return writeText(w, results)
	}
	format, err := bam.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	h, err := bam.NewHeader(refs, bam.Program{ID: "bio-bwa", Name: "bio-bwa", CommandLine: commandLine})
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	sw, err := bam.NewWriter(bw, h, bam.WriteOpts{Format: format, Level: c.CompressionLevel, Parallelism: c.Parallelism})
	if err != nil {
		return err
	}
	var e errors.Once
	for i, q := range queries {
		recs, err := bam.Records(h, q, results[i])
		if err != nil {
			e.Set(err)
			break
		}
		if err := sw.Write(recs...); err != nil {
			e.Set(err)
			break
		}
	}
	e.Set(sw.Close())
	e.Set(bw.Flush())
	return e.Err()
}

// writeText prints each result as a count line followed by one line per hit.
func writeText(w io.Writer, results []aligner.Result) error {
	bw := bufio.NewWriter(w)
	for i, r := range results {
		fmt.Fprintf(bw, "Found %d alignments for input %d.\n", len(r), i+1)
		for _, hit := range r {
			fmt.Fprintf(bw, "  %v\n", hit)
		}
	}
	return bw.Flush()
}
