package jfuzz

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

const (
	lcgA    uint64 = 0x5DEECE66D
	lcgC    uint64 = 0xB
	lcgMask uint64 = (1 << 48) - 1
)

// rng is the srand48/lrand48 recurrence. Every random decision of a
// session goes through one rng so a seed reproduces a program exactly.
type rng struct {
	state     uint64
	trace     bool
	traceSite bool
	traceFile string
	tracePos  uint64
}

func newRNG(seed uint64) *rng {
	r := &rng{state: ((seed << 16) + 0x330E) & lcgMask}
	if os.Getenv("JFUZZ_TRACE_RNG") != "" {
		r.trace = true
		r.traceSite = os.Getenv("JFUZZ_TRACE_RNG_SITE") != ""
		r.traceFile = os.Getenv("JFUZZ_TRACE_RNG_FILE")
		if r.traceFile == "" {
			r.traceFile = "/tmp/jfuzz-rng.trace"
		}
		_ = os.WriteFile(r.traceFile, []byte(fmt.Sprintf("# seed=%d\n", seed)), 0o644)
	}
	return r
}

func (r *rng) next31() uint32 {
	r.state = (lcgA*r.state + lcgC) & lcgMask
	return uint32(r.state >> 17)
}

// upto returns a value in [0, n). Non-positive n yields 0.
func (r *rng) upto(n int) int {
	if n <= 0 {
		return 0
	}
	x := int(r.next31() % uint32(n))
	r.traceEvent("U", n, x)
	return x
}

// upto63 is upto for ranges wider than 31 bits.
func (r *rng) upto63(n int64) int64 {
	if n <= 0 {
		return 0
	}
	v := int64(r.next31())<<31 | int64(r.next31())
	x := v % n
	r.traceEvent("W", int(n&0x7FFFFFFF), int(x&0x7FFFFFFF))
	return x
}

// prob reports true with probability p percent.
func (r *rng) prob(p int) bool {
	if p > 100 {
		p = 100
	}
	v := int(r.next31() % 100)
	ok := v < p
	b := 0
	if ok {
		b = 1
	}
	r.traceEvent("F", p, b)
	return ok
}

// sign returns -1 or 1 with equal probability.
func (r *rng) sign() int {
	if r.upto(2) == 0 {
		return -1
	}
	return 1
}

func (r *rng) traceEvent(kind string, n, x int) {
	if !r.trace {
		return
	}
	r.tracePos++
	f, err := os.OpenFile(r.traceFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return
	}
	if r.traceSite {
		_, _ = fmt.Fprintf(f, "%d %s %d -> %d @%s\n", r.tracePos, kind, n, x, traceCaller())
	} else {
		_, _ = fmt.Fprintf(f, "%d %s %d -> %d\n", r.tracePos, kind, n, x)
	}
	_ = f.Close()
}

func traceCaller() string {
	var pcs [12]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		if fr.Function != "" && !strings.Contains(fr.Function, ".(*rng).") && !strings.HasSuffix(fr.Function, ".pickOne") {
			return fr.Function
		}
		if !more {
			break
		}
	}
	return "unknown"
}

// pickOne returns a uniformly chosen element; ok is false for an empty slice.
func pickOne[T any](r *rng, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[r.upto(len(items))], true
}
