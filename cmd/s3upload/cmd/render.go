package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// renderer draws upload progress. On a terminal it keeps one status line
// updated in place; otherwise it prints a line every time a file crosses a
// quarter of its progress.
type renderer struct {
	mu   sync.Mutex
	w    io.Writer
	tty  bool
	ids  []string
	last map[string]float64

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

func newRenderer(w io.Writer) *renderer {
	r := &renderer{
		w:    w,
		tty:  isTerminal(w),
		last: make(map[string]float64),
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if !r.tty {
		r.ok.DisableColor()
		r.fail.DisableColor()
		r.dim.DisableColor()
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Progress is installed as the uploader's progress listener.
func (r *renderer) Progress(id string, p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, seen := r.last[id]
	if !seen {
		r.ids = append(r.ids, id)
	}
	r.last[id] = p

	if r.tty {
		r.drawStatus()
		return
	}
	if !seen || quarter(p) > quarter(prev) {
		_, _ = fmt.Fprintf(r.w, "%s %3.0f%%\n", id, p)
	}
}

func quarter(p float64) int {
	return int(p / 25)
}

func (r *renderer) drawStatus() {
	parts := make([]string, 0, len(r.ids))
	for _, id := range r.ids {
		parts = append(parts, fmt.Sprintf("%s %s", id, r.dim.Sprintf("%3.0f%%", r.last[id])))
	}
	_, _ = fmt.Fprintf(r.w, "\r\033[K%s", strings.Join(parts, "  "))
}

// Done reports a finished file and drops it from the status line.
func (r *renderer) Done(id, hash string) {
	r.finish(id, r.ok.Sprint("done"), hash)
}

// Failed reports a failed file and drops it from the status line.
func (r *renderer) Failed(id string, err error) {
	r.finish(id, r.fail.Sprint("failed"), err.Error())
}

func (r *renderer) finish(id, status, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := slices.Index(r.ids, id); i >= 0 {
		r.ids = slices.Delete(r.ids, i, i+1)
	}
	delete(r.last, id)

	if r.tty {
		_, _ = fmt.Fprint(r.w, "\r\033[K")
	}
	_, _ = fmt.Fprintf(r.w, "%s %s %s\n", status, id, detail)
	if r.tty && len(r.ids) > 0 {
		r.drawStatus()
	}
}
