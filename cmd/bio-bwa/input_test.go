package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bwamem/aligner"
	"github.com/grailbio/bwamem/encoding/bam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func TestReadQueries(t *testing.T) {
	q, err := readQueries(strings.NewReader("\n  >r1 x\nACGT\nAA\n>r2\nGG\n"))
	assert.NoError(t, err)
	expect.EQ(t, q, []bam.Query{{Name: "r1", Seq: "ACGTAA"}, {Name: "r2", Seq: "GG"}})

	q, err = readQueries(strings.NewReader("@r1 1:N\nACGT\n+\nIIII\n"))
	assert.NoError(t, err)
	expect.EQ(t, q, []bam.Query{{Name: "r1", Seq: "ACGT", Qual: "IIII"}})

	q, err = readQueries(strings.NewReader(" \n"))
	assert.NoError(t, err)
	expect.EQ(t, len(q), 0)

	_, err = readQueries(strings.NewReader("ACGT\n"))
	expect.NotNil(t, err)
	_, err = readQueries(strings.NewReader("@r1\nACGT\n"))
	expect.NotNil(t, err)
}

func TestReadQueriesFromPath(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	plain := filepath.Join(dir, "q.fa")
	assert.NoError(t, ioutil.WriteFile(plain, []byte(">a\nACGT\n"), 0644))
	q, err := readQueriesFromPath(ctx, plain)
	assert.NoError(t, err)
	expect.EQ(t, q, []bam.Query{{Name: "a", Seq: "ACGT"}})

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte("@b\nTTGA\n+\n!!!!\n"))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	compressed := filepath.Join(dir, "q.fq.gz")
	assert.NoError(t, ioutil.WriteFile(compressed, buf.Bytes(), 0644))
	q, err = readQueriesFromPath(ctx, compressed)
	assert.NoError(t, err)
	expect.EQ(t, q, []bam.Query{{Name: "b", Seq: "TTGA", Qual: "!!!!"}})

	_, err = readQueriesFromPath(ctx, filepath.Join(dir, "missing.fa"))
	expect.NotNil(t, err)
}

func TestNameQueries(t *testing.T) {
	q := []bam.Query{{Seq: "A"}, {Name: "x", Seq: "C"}, {Seq: "G"}}
	nameQueries(q)
	expect.EQ(t, q[0].Name, "seq1")
	expect.EQ(t, q[1].Name, "x")
	expect.EQ(t, q[2].Name, "seq3")
}

func TestCollectQueries(t *testing.T) {
	ctx := vcontext.Background()
	codes := aligner.ParseOptionCodes("1pk:c:")
	c := defaultConfig()
	c.Options = "-p"

	options, q, err := collectQueries(ctx, codes, c, []string{"ACGT", "-k", "19", "GGCC"})
	assert.NoError(t, err)
	expect.EQ(t, options, []string{"-p", "-k", "19"})
	expect.EQ(t, q, []bam.Query{{Name: "seq1", Seq: "ACGT"}, {Name: "seq2", Seq: "GGCC"}})

	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	c.Input = filepath.Join(dir, "q.fa")
	assert.NoError(t, ioutil.WriteFile(c.Input, []byte(">r\nTTTT\n"), 0644))
	_, q, err = collectQueries(ctx, codes, c, []string{"ACGT"})
	assert.NoError(t, err)
	expect.EQ(t, q, []bam.Query{{Name: "seq1", Seq: "ACGT"}, {Name: "r", Seq: "TTTT"}})
}

func TestCollectQueriesEmpty(t *testing.T) {
	ctx := vcontext.Background()
	codes := aligner.ParseOptionCodes("1pk:c:")
	c := defaultConfig()

	_, _, err := collectQueries(ctx, codes, c, nil)
	expect.HasSubstr(t, err.Error(), "no query sequences")
	_, _, err = collectQueries(ctx, codes, c, []string{"-k", "19"})
	expect.HasSubstr(t, err.Error(), "no query sequences")

	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	c.Input = filepath.Join(dir, "empty.fa")
	assert.NoError(t, ioutil.WriteFile(c.Input, []byte("\n"), 0644))
	_, _, err = collectQueries(ctx, codes, c, nil)
	expect.HasSubstr(t, err.Error(), "no query sequences")
}
