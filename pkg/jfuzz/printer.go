package jfuzz

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	indentUnit    = "    "
	tripCountName = "N"
)

// printer accumulates indented source lines.
type printer struct {
	b      strings.Builder
	indent int
}

func writeLine(b *strings.Builder, indent int, s string) {
	for i := 0; i < indent; i++ {
		b.WriteString(indentUnit)
	}
	b.WriteString(s)
	b.WriteByte('\n')
}

func (p *printer) line(s string) { writeLine(&p.b, p.indent, s) }

func (p *printer) linef(format string, args ...any) { p.line(fmt.Sprintf(format, args...)) }

func (p *printer) blank() { p.b.WriteByte('\n') }

func (p *printer) shift(n int) { p.indent += n }

// block prints head, runs body one level deeper and closes with tail.
func (p *printer) block(head, tail string, body func()) {
	p.line(head)
	p.shift(1)
	body()
	p.shift(-1)
	p.line(tail)
}

func (p *printer) String() string { return p.b.String() }

func itoa(n int) string { return strconv.Itoa(n) }

// wrapLines folds lines wider than width. Indentation deeper than maxShift
// is reduced modulo maxShift first. A fold inside a string literal closes
// the literal and continues it with concatenation on the next line.
func wrapLines(text string, width, maxShift int) string {
	var out strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		if maxShift > 0 {
			line = line[(leadingSpace(line)/maxShift)*maxShift:]
		}
		if len(line) <= width+1 {
			out.WriteString(line)
			continue
		}
		indent := line[:leadingSpace(line)]
		tail := lastWordTail(line[:width])
		if tail == 0 {
			out.WriteString(line)
			continue
		}
		cont := indent + indentUnit
		if strings.HasPrefix(line[len(indent):], "//") {
			cont = indent + "// "
		}
		head := line[:width-tail]
		open := strings.Count(head, `"`)%2 != 0
		out.WriteString(head)
		if open {
			out.WriteString(`"+`)
		}
		out.WriteByte('\n')
		line = line[width-tail+1:]

		room := width - len(cont)
		for room > 0 && len(line) > room+1 {
			cut := room
			if lastWordTail(line[:room]) == 0 {
				i := strings.IndexAny(line, " \t\n")
				if i < 0 {
					break
				}
				cut = i + 1
			}
			tail = lastWordTail(line[:cut])
			piece := line[:cut-tail]
			out.WriteString(cont)
			if open {
				out.WriteByte('"')
			}
			if strings.Count(piece, `"`)%2 != 0 {
				open = !open
			}
			out.WriteString(piece)
			if open {
				out.WriteString(`"+`)
			}
			out.WriteByte('\n')
			line = line[cut-tail+1:]
		}
		if strings.TrimSpace(line) != "" {
			out.WriteString(cont)
			if open {
				out.WriteByte('"')
			}
			out.WriteString(line)
		}
	}
	return out.String()
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t"))
}

// lastWordTail is the length of the final whitespace-led run of s, or 0
// when s has no whitespace.
func lastWordTail(s string) int {
	i := strings.LastIndexAny(s, " \t\n")
	if i < 0 {
		return 0
	}
	return len(s) - i
}
