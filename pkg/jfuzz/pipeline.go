package jfuzz

import (
	"fmt"
	"strings"
)

// javaProgramGenerator runs the passes of one program:
// initialize -> generateClasses (until strong enough) -> outputHeader -> output.
type javaProgramGenerator struct {
	opts     Options
	r        *rng
	s        *session
	attempts int
	b        strings.Builder
	body     int // offset of the first byte after the header
}

func newJavaProgramGenerator(opts Options) *javaProgramGenerator {
	return &javaProgramGenerator{opts: opts}
}

func (g *javaProgramGenerator) initialize() {
	g.r = newRNG(g.opts.Seed)
}

// generateClasses builds whole programs until the head class holds enough
// code. Every attempt starts from a fresh session on the same random
// stream; the last attempt is kept when none is strong enough.
func (g *javaProgramGenerator) generateClasses() {
	log := g.opts.Logger
	for g.attempts = 1; ; g.attempts++ {
		g.s = newSession(g.opts, g.r)
		head := g.s.newClass(true)
		strong := g.s.strongEnough(head)
		log.Debug("generate.attempt", "seed", g.opts.Seed, "attempt", g.attempts,
			"classes", len(g.s.classes), "methods", len(g.s.methods), "strong", strong)
		if strong {
			return
		}
		if g.attempts >= g.opts.MaxAttempts {
			log.Warn("generate.weak", "seed", g.opts.Seed, "attempts", g.attempts)
			return
		}
	}
}

func (g *javaProgramGenerator) outputHeader() {
	g.b.WriteString("/*\n")
	g.b.WriteString(" * This is a RANDOMLY GENERATED PROGRAM.\n")
	g.b.WriteString(" *\n")
	g.b.WriteString(" * Generator: " + GeneratorName + " " + GeneratorVersion + "\n")
	g.b.WriteString(fmt.Sprintf(" * Seed:      %d\n", g.opts.Seed))
	g.b.WriteString(" */\n\n")
	g.body = g.b.Len()
	if g.opts.Package != "" {
		g.b.WriteString("package " + g.opts.Package + ";\n\n")
	}
}

// output prints the auxiliary types, then the classes in creation order
// with the head class last.
func (g *javaProgramGenerator) output() {
	var p printer
	for _, a := range g.s.aux {
		p.line(a)
		p.blank()
	}
	for _, c := range g.s.classes {
		if c.head {
			continue
		}
		c.render(&p)
		p.blank()
	}
	g.s.head.render(&p)
	g.b.WriteString(wrapLines(p.String(), g.opts.Width, g.opts.MaxShift))
}

func (g *javaProgramGenerator) generate() *Program {
	g.generateClasses()
	g.outputHeader()
	g.output()
	src := g.b.String()
	p := &Program{
		Seed:     g.opts.Seed,
		Source:   src,
		Attempts: g.attempts,
		Classes:  len(g.s.classes),
		Methods:  len(g.s.methods),
		body:     g.body,
		s:        g.s,
	}
	g.opts.Logger.Debug("generate.done", "seed", p.Seed, "attempts", p.Attempts,
		"classes", p.Classes, "methods", p.Methods, "bytes", len(src))
	return p
}
