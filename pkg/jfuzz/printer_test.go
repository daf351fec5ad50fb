package jfuzz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapLines(t *testing.T) {
	for _, tc := range []struct {
		name     string
		in       string
		width    int
		maxShift int
		want     string
	}{
		{
			name:  "short line untouched",
			in:    "short\n",
			width: 20, maxShift: 110,
			want: "short\n",
		},
		{
			name:  "fold at last space",
			in:    "aaaa bbbb cccc dddd eeee ffff\n",
			width: 20, maxShift: 110,
			want: "aaaa bbbb cccc dddd\n    eeee ffff\n",
		},
		{
			name:  "string literal continues with concatenation",
			in:    "s = \"aaa bbb ccc ddd eee fff\";\n",
			width: 20, maxShift: 110,
			want: "s = \"aaa bbb ccc\"+\n    \"ddd eee fff\";\n",
		},
		{
			name:  "comment continues as comment",
			in:    "    // one two three four five six seven\n",
			width: 20, maxShift: 110,
			want: "    // one two\n    // three four\n    // five six\n    // seven\n",
		},
		{
			name:  "deep indentation reduced",
			in:    "        x\n      y\n",
			width: 120, maxShift: 4,
			want: "x\n  y\n",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, wrapLines(tc.in, tc.width, tc.maxShift))
		})
	}
}

func TestPrinterIndentation(t *testing.T) {
	var p printer
	p.block("if (a) {", "}", func() {
		p.line("x++;")
		p.linef("y = %d;", 3)
	})
	p.blank()
	assert.Equal(t, "if (a) {\n    x++;\n    y = 3;\n}\n\n", p.String())
}
