package aligner

import (
	"flag"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

var libraryFlag = flag.String("bwa-library", "", "Shared object exporting the bwa mem entry points. Tests that need it are skipped if unset.")

func randomBases(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = "ACGT"[r.Intn(4)]
	}
	return string(b)
}

func revComp(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		var c byte
		switch s[len(s)-1-i] {
		case 'A':
			c = 'T'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		default:
			c = 'A'
		}
		b[i] = c
	}
	return string(b)
}

// buildIndex writes a two-sequence reference and indexes it with the bwa
// binary.
func buildIndex(t *testing.T, sh *gosh.Shell, dir string) (prefix string, chr2 string) {
	if _, err := lookpath.Look(sh.Vars, "bwa"); err != nil {
		t.Skipf("bwa not found on the machine. Skipping the test")
	}
	r := rand.New(rand.NewSource(1))
	chr1, chr2 := randomBases(r, 3000), randomBases(r, 2000)
	prefix = filepath.Join(dir, "ref.fa")
	assert.NoError(t, ioutil.WriteFile(prefix, []byte(">chr1\n"+chr1+"\n>chr2 second\n"+chr2+"\n"), 0644))
	cmd := sh.Cmd("bwa", "index", prefix)
	cmd.Run()
	require.NoError(t, cmd.Err)
	return prefix, chr2
}

func TestNativeAlign(t *testing.T) {
	if *libraryFlag == "" {
		t.Skip("-bwa-library not set")
	}
	sh := gosh.NewShell(t)
	defer sh.Cleanup()
	dir, cleanup := testutil.TempDir(t, "", "bwamem")
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	prefix, chr2 := buildIndex(t, sh, dir)

	lib, err := LoadLibrary(LibraryOpts{Path: *libraryFlag})
	assert.NoError(t, err)
	again, err := LoadLibrary(LibraryOpts{Path: *libraryFlag})
	assert.NoError(t, err)
	expect.True(t, lib == again)

	a, err := Open(lib, prefix, "-k 19")
	assert.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	refs := a.References()
	require.Len(t, refs, 2)
	expect.EQ(t, refs[0].Name, "chr1")
	expect.EQ(t, refs[1].Name, "chr2")
	expect.EQ(t, refs[1].Len, 2000)

	q := chr2[500:600]
	r, err := a.Align(q)
	assert.NoError(t, err)
	require.Len(t, r, 1)
	expect.EQ(t, r[0].RefName, "chr2")
	expect.EQ(t, r[0].Strand, Forward)
	expect.EQ(t, r[0].Pos, 500)
	expect.EQ(t, r[0].EditDistance, 0)
	expect.EQ(t, r[0].Cigar, sam.Cigar{sam.NewCigarOp(sam.CigarMatch, len(q))})

	r, err = a.Align(revComp(q))
	assert.NoError(t, err)
	require.Len(t, r, 1)
	expect.EQ(t, r[0].Strand, Reverse)
	expect.EQ(t, r[0].Pos, 500)

	r, err = a.Align(strings.Repeat("N", 100))
	assert.NoError(t, err)
	expect.EQ(t, len(r), 0)

	// Local validation runs before the library is touched.
	b := New(lib)
	err = b.Open(prefix, []string{"-Z"})
	expect.EQ(t, errors.Cause(err), ErrInvalidOption)

	_, err = Open(lib, filepath.Join(dir, "missing.fa"), "")
	expect.EQ(t, errors.Cause(err), ErrIndexLoad)
}
