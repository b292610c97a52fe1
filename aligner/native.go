// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build cgo
// +build cgo

package aligner

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>
#include <unistd.h>

// Layouts below mirror bwa's bntseq.h, bwa.h and bwamem.h, reduced to the
// fields read here. Pointers this package never dereferences are void*.

typedef struct {
	int64_t offset;
	int32_t len;
	int32_t n_ambs;
	uint32_t gi;
	int32_t is_alt;
	char *name, *anno;
} bntann1_t;

typedef struct {
	int64_t l_pac;
	int32_t n_seqs;
	uint32_t seed;
	bntann1_t *anns;
	int32_t n_holes;
	void *ambs;
	void *fp_pac;
} bntseq_t;

typedef struct {
	void *bwt;
	bntseq_t *bns;
	uint8_t *pac;
	int is_shm;
	int64_t l_mem;
	uint8_t *mem;
} bwaidx_t;

// mem_aln_t. cgo cannot address bitfields, so the group
// "uint32_t is_rev:1, is_alt:1, mapq:8, NM:22" is declared as one word.
typedef struct {
	int64_t pos;
	int rid;
	int flag;
	uint32_t packed;
	int n_cigar;
	uint32_t *cigar;
	char *XA;
	int score, sub, alt_sc;
} mem_aln_t;

typedef struct {
	size_t n;
	mem_aln_t *aln;
} mem_aln_v;

typedef bwaidx_t *(*idx_load_fn)(const char *);
typedef void (*idx_destroy_fn)(bwaidx_t *);
typedef void *(*get_opts_fn)(int, char **, bwaidx_t *);
typedef mem_aln_v *(*align_fn)(void *, bwaidx_t *, char *);
typedef void (*free_alns_fn)(mem_aln_v *);

static bwaidx_t *call_idx_load(void *fn, const char *hint) {
	return ((idx_load_fn)fn)(hint);
}

static void call_idx_destroy(void *fn, bwaidx_t *idx) {
	((idx_destroy_fn)fn)(idx);
}

static void *call_get_opts(void *fn, int argc, char **argv, bwaidx_t *idx) {
	// get_opts runs getopt; restart its scan.
#ifdef __GLIBC__
	optind = 0;
#else
	optind = 1;
#endif
	return ((get_opts_fn)fn)(argc, argv, idx);
}

static mem_aln_v *call_align(void *fn, void *opt, bwaidx_t *idx, char *seq) {
	return ((align_fn)fn)(opt, idx, seq);
}

static void call_free_alns(void *fn, mem_aln_v *alns) {
	((free_alns_fn)fn)(alns);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Symbols the shared object must export.
const (
	symIdxLoad    = "bwa_idx_load_all"
	symIdxDestroy = "bwa_idx_destroy"
	symGetOpts    = "get_opts"
	symAlign      = "align"
	symFreeAlns   = "free_mem_aln_v"
	symValidOpts  = "valid_opts"
)

// getoptMu serializes option parsing process-wide: getopt keeps its state in
// libc globals.
var getoptMu sync.Mutex

// nativeEngine calls into a dlopen'ed bwa library.
type nativeEngine struct {
	path       string
	handle     unsafe.Pointer
	idxLoad    unsafe.Pointer
	idxDestroy unsafe.Pointer
	getOpts    unsafe.Pointer
	alignFn    unsafe.Pointer
	freeAlns   unsafe.Pointer
	codes      string

	mu sync.Mutex
	// argvs holds the C argv of each live option set, keyed by the option
	// handle. The engine may keep pointers into argv.
	argvs map[unsafe.Pointer]unsafe.Pointer
}

func dlerror() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown error"
}

// newNativeEngine dlopens the library at path and resolves every symbol the
// binding uses. The library is never closed.
func newNativeEngine(path string) (engine, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, errors.Errorf("dlopen %s: %s", path, dlerror())
	}
	e := &nativeEngine{path: path, handle: handle, argvs: map[unsafe.Pointer]unsafe.Pointer{}}
	syms := []struct {
		name string
		dst  *unsafe.Pointer
	}{
		{symIdxLoad, &e.idxLoad},
		{symIdxDestroy, &e.idxDestroy},
		{symGetOpts, &e.getOpts},
		{symAlign, &e.alignFn},
		{symFreeAlns, &e.freeAlns},
	}
	for _, s := range syms {
		p, err := e.lookup(s.name)
		if err != nil {
			return nil, err
		}
		*s.dst = p
	}
	validOpts, err := e.lookup(symValidOpts)
	if err != nil {
		return nil, err
	}
	e.codes = C.GoString((*C.char)(validOpts))
	log.Debug.Printf("%s: loaded bwa library, option codes %q", path, e.codes)
	return e, nil
}

func (e *nativeEngine) lookup(name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	C.dlerror()
	p := C.dlsym(e.handle, cname)
	if p == nil {
		return nil, errors.Errorf("%s: symbol %s: %s", e.path, name, dlerror())
	}
	return p, nil
}

func (e *nativeEngine) optionCodes() string { return e.codes }

func (e *nativeEngine) loadIndex(prefix string) unsafe.Pointer {
	cprefix := C.CString(prefix)
	defer C.free(unsafe.Pointer(cprefix))
	return unsafe.Pointer(C.call_idx_load(e.idxLoad, cprefix))
}

func (e *nativeEngine) references(idx unsafe.Pointer) []Reference {
	bns := (*C.bwaidx_t)(idx).bns
	if bns == nil || bns.n_seqs <= 0 {
		return nil
	}
	anns := unsafe.Slice(bns.anns, int(bns.n_seqs))
	refs := make([]Reference, len(anns))
	for i := range anns {
		refs[i] = Reference{
			Name:   C.GoString(anns[i].name),
			Len:    int(anns[i].len),
			Offset: int64(anns[i].offset),
		}
	}
	return refs
}

func (e *nativeEngine) destroyIndex(idx unsafe.Pointer) {
	C.call_idx_destroy(e.idxDestroy, (*C.bwaidx_t)(idx))
}

func (e *nativeEngine) parseOptions(argv []string, idx unsafe.Pointer) unsafe.Pointer {
	ptrSize := C.size_t(unsafe.Sizeof(uintptr(0)))
	cargv := C.malloc(C.size_t(len(argv)+1) * ptrSize)
	slots := unsafe.Slice((**C.char)(cargv), len(argv)+1)
	for i, arg := range argv {
		slots[i] = C.CString(arg)
	}
	slots[len(argv)] = nil

	getoptMu.Lock()
	opt := C.call_get_opts(e.getOpts, C.int(len(argv)), (**C.char)(cargv), (*C.bwaidx_t)(idx))
	getoptMu.Unlock()

	if opt == nil {
		freeArgv(cargv)
		return nil
	}
	e.mu.Lock()
	e.argvs[opt] = cargv
	e.mu.Unlock()
	return opt
}

func freeArgv(cargv unsafe.Pointer) {
	for p := (**C.char)(cargv); *p != nil; p = (**C.char)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(*p))) {
		C.free(unsafe.Pointer(*p))
	}
	C.free(cargv)
}

func (e *nativeEngine) freeOptions(opt unsafe.Pointer) {
	C.free(opt)
	e.mu.Lock()
	cargv, ok := e.argvs[opt]
	delete(e.argvs, opt)
	e.mu.Unlock()
	if ok {
		freeArgv(cargv)
	}
}

func (e *nativeEngine) align(opt, idx unsafe.Pointer, seq string) unsafe.Pointer {
	cseq := C.CString(seq)
	defer C.free(unsafe.Pointer(cseq))
	return unsafe.Pointer(C.call_align(e.alignFn, opt, (*C.bwaidx_t)(idx), cseq))
}

func (e *nativeEngine) records(alns unsafe.Pointer) []record {
	v := (*C.mem_aln_v)(alns)
	if v.n == 0 {
		return nil
	}
	native := unsafe.Slice(v.aln, int(v.n))
	recs := make([]record, len(native))
	for i := range native {
		a := &native[i]
		r := record{
			refID:  int32(a.rid),
			pos:    int64(a.pos),
			flag:   int32(a.flag),
			packed: uint32(a.packed),
			score:  int32(a.score),
		}
		if a.n_cigar > 0 {
			r.cigar = make([]uint32, int(a.n_cigar))
			copy(r.cigar, unsafe.Slice((*uint32)(unsafe.Pointer(a.cigar)), int(a.n_cigar)))
		}
		if a.XA != nil {
			r.xa = C.GoString(a.XA)
		}
		recs[i] = r
	}
	return recs
}

func (e *nativeEngine) freeAlignments(alns unsafe.Pointer) {
	C.call_free_alns(e.freeAlns, (*C.mem_aln_v)(alns))
}
