package jfuzz

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

const (
	GeneratorName    = "jfuzz"
	GeneratorVersion = "0.1.0"
)

// Program is one generated Java source file together with the generation
// state it came from.
type Program struct {
	Seed     uint64
	Source   string
	Attempts int // whole-program regenerations until the head class was strong enough
	Classes  int
	Methods  int

	body int
	s    *session
}

// Body is the source without the header comment, which mentions the seed.
func (p *Program) Body() string { return p.Source[p.body:] }

// Fingerprint hashes the body, so equal programs drawn from different seeds
// compare equal.
func (p *Program) Fingerprint() uint64 { return xxh3.HashString(p.Body()) }

// FileName is the file the head class has to live in.
func (p *Program) FileName() string { return p.s.opts.MainClassName + ".java" }

// Generate emits a deterministic Java program from options and seed.
// Engine invariant violations come back as *InvariantError.
func Generate(opts Options) (prog *Program, err error) {
	opts, err = opts.validate()
	if err != nil {
		return nil, err
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ie, ok := r.(*InvariantError)
		if !ok {
			panic(r)
		}
		opts.Logger.Error("generate.failed", "seed", opts.Seed, "op", ie.Op, "detail", ie.Detail)
		prog, err = nil, fmt.Errorf("seed %d: %w", opts.Seed, ie)
	}()
	gen := createProgramGenerator(opts)
	gen.initialize()
	return gen.generate(), nil
}
