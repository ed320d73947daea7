package cmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)
	assert.False(t, r.tty)

	for _, p := range []float64{1, 2, 10, 20, 30, 55, 80, 99} {
		r.Progress("a.bin", p)
	}
	r.Done("a.bin", "hash==")

	assert.Equal(t,
		"a.bin   1%\n"+
			"a.bin  30%\n"+
			"a.bin  55%\n"+
			"a.bin  80%\n"+
			"done a.bin hash==\n",
		buf.String())
}

func TestRenderer_Failed(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	r.Progress("b.bin", 1)
	r.Failed("b.bin", fmt.Errorf("boom"))

	assert.Contains(t, buf.String(), "failed b.bin boom\n")
	assert.Empty(t, r.ids)
	assert.Empty(t, r.last)
}
