package aligner

import (
	"sync"
	"unsafe"
)

// bwaOptionCodes is the allow-list published by bwa mem.
const bwaOptionCodes = "51qpaMCSPVYjuk:c:v:s:r:t:R:A:B:O:E:U:w:L:d:T:Q:D:m:I:N:o:f:W:x:G:h:y:K:X:H:F:z:"

// fakeEngine is an in-memory engine that records every native call.
type fakeEngine struct {
	codes      string
	refs       []Reference
	failLoad   bool
	failParse  bool
	hits       map[string][]record // keyed by query sequence
	mu         sync.Mutex
	calls      map[string]int
	order      []string
	argv       [][]string
	collection map[unsafe.Pointer][]record
	live       map[unsafe.Pointer]string // handle -> kind
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		codes: bwaOptionCodes,
		refs: []Reference{
			{Name: "chr1", Len: 1000, Offset: 0},
			{Name: "chr2", Len: 500, Offset: 1000},
		},
		hits:       map[string][]record{},
		calls:      map[string]int{},
		collection: map[unsafe.Pointer][]record{},
		live:       map[unsafe.Pointer]string{},
	}
}

func (e *fakeEngine) record(call string) {
	e.calls[call]++
	e.order = append(e.order, call)
}

func (e *fakeEngine) count(call string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[call]
}

// nativeCalls returns the total number of calls into the fake native layer,
// excluding optionCodes, which reads a static string.
func (e *fakeEngine) nativeCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

func (e *fakeEngine) newHandle(kind string) unsafe.Pointer {
	p := unsafe.Pointer(new(int64))
	e.live[p] = kind
	return p
}

func (e *fakeEngine) release(p unsafe.Pointer, kind string) {
	if e.live[p] != kind {
		panic("fake engine: release of a " + kind + " handle that is not live")
	}
	delete(e.live, p)
}

func (e *fakeEngine) liveHandles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func (e *fakeEngine) optionCodes() string { return e.codes }

func (e *fakeEngine) loadIndex(prefix string) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("loadIndex")
	if e.failLoad {
		return nil
	}
	return e.newHandle("index")
}

func (e *fakeEngine) references(idx unsafe.Pointer) []Reference {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("references")
	return append([]Reference(nil), e.refs...)
}

func (e *fakeEngine) destroyIndex(idx unsafe.Pointer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("destroyIndex")
	e.release(idx, "index")
}

func (e *fakeEngine) parseOptions(argv []string, idx unsafe.Pointer) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("parseOptions")
	if e.live[idx] != "index" {
		panic("fake engine: options parsed without a live index")
	}
	e.argv = append(e.argv, argv)
	if e.failParse {
		return nil
	}
	return e.newHandle("options")
}

func (e *fakeEngine) freeOptions(opt unsafe.Pointer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("freeOptions")
	e.release(opt, "options")
}

func (e *fakeEngine) align(opt, idx unsafe.Pointer, seq string) unsafe.Pointer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("align")
	if e.live[opt] != "options" || e.live[idx] != "index" {
		panic("fake engine: align with a dead handle")
	}
	recs, ok := e.hits[seq]
	if !ok {
		return nil
	}
	p := e.newHandle("alignments")
	e.collection[p] = recs
	return p
}

func (e *fakeEngine) records(alns unsafe.Pointer) []record {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("records")
	return append([]record(nil), e.collection[alns]...)
}

func (e *fakeEngine) freeAlignments(alns unsafe.Pointer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.record("freeAlignments")
	e.release(alns, "alignments")
	delete(e.collection, alns)
}

// packed builds the native is_rev/is_alt/mapq/NM word.
func packed(reverse, alt bool, mapq, nm uint32) uint32 {
	w := mapq<<2 | nm<<10
	if reverse {
		w |= 1
	}
	if alt {
		w |= 2
	}
	return w
}

// cigarWord builds one native CIGAR entry; op uses bwa's "MIDSH" numbering.
func cigarWord(n, op uint32) uint32 { return n<<4 | op }
