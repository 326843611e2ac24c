// Package progress provides CLI progress indicators. Output goes to stderr
// to keep stdout clean for piping, and TTY detection ensures proper formatting
// in both interactive and scripted usage.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Progress tracks and displays operation progress.
type Progress struct {
	w       io.Writer
	total   int64
	current int64
	isTTY   bool
	width   int // widest line written, for clearing
}

// New creates a progress reporter that writes to stderr.
func New(total int64) *Progress {
	return NewWriter(os.Stderr, total, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewWriter creates a progress reporter on w. isTTY selects in-place
// updates over one line per step.
func NewWriter(w io.Writer, total int64, isTTY bool) *Progress {
	return &Progress{w: w, total: total, isTTY: isTTY}
}

// Step advances the counter and reports msg against it. On a TTY the line
// is updated in place; otherwise each step gets its own line, so logs of
// long runs keep a record of every row.
func (p *Progress) Step(msg string) {
	p.current++
	line := fmt.Sprintf("(%d / %d) %s", p.current, p.total, msg)
	if p.isTTY {
		p.overwrite(line)
		return
	}
	fmt.Fprintln(p.w, line)
}

// Done clears the progress line (on TTY) to make way for final output.
func (p *Progress) Done() {
	if p.isTTY && p.width > 0 {
		fmt.Fprintf(p.w, "\r%s\r", strings.Repeat(" ", p.width))
		p.width = 0
	}
}

func (p *Progress) overwrite(line string) {
	pad := ""
	if n := len(line); n < p.width {
		pad = strings.Repeat(" ", p.width-n)
	} else {
		p.width = n
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
}
