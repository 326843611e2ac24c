// Package diff computes character-level differences between tag names, used
// to show what a rename changed.
package diff

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Result holds a name diff.
type Result struct {
	Old  string `json:"old"`
	New  string `json:"new"`
	Diff string `json:"diff"` // Inline form: [-removed-]{+added+}
}

// Changed reports whether the names differ.
func (r Result) Changed() bool {
	return r.Old != r.New
}

// Compute returns the inline diff between two names.
func Compute(oldName, newName string) Result {
	return Result{
		Old:  oldName,
		New:  newName,
		Diff: render(diffs(oldName, newName), plain),
	}
}

// Format returns the inline diff, colourised when colour is true.
func (r Result) Format(colour bool) string {
	if !colour {
		return r.Diff
	}
	return render(diffs(r.Old, r.New), colourised)
}

func diffs(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	d := dmp.DiffMain(a, b, false)
	return dmp.DiffCleanupSemantic(d)
}

type marker func(op diffmatchpatch.Operation, text string) string

func plain(op diffmatchpatch.Operation, text string) string {
	switch op {
	case diffmatchpatch.DiffDelete:
		return "[-" + text + "-]"
	case diffmatchpatch.DiffInsert:
		return "{+" + text + "+}"
	default:
		return text
	}
}

var (
	red   = color.New(color.FgRed, color.CrossedOut).SprintFunc()
	green = color.New(color.FgGreen, color.Underline).SprintFunc()
)

func colourised(op diffmatchpatch.Operation, text string) string {
	switch op {
	case diffmatchpatch.DiffDelete:
		return red(text)
	case diffmatchpatch.DiffInsert:
		return green(text)
	default:
		return text
	}
}

func render(diffs []diffmatchpatch.Diff, mark marker) string {
	var b strings.Builder
	for _, d := range diffs {
		b.WriteString(mark(d.Type, d.Text))
	}
	return b.String()
}
