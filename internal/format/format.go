// Package format provides output formatting utilities for CLI display.
//
// Centralises formatting logic so that command implementations focus on
// business logic while this package handles presentation concerns like
// column alignment, colourised state and markdown tables.
package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/jpl-au/tagd/internal/store"
)

// Style selects how a tag listing is printed.
type Style int

const (
	// Plain prints "id  name" per tag.
	Plain Style = iota
	// Long prints an aligned table with category, usage and state.
	Long
	// Table renders a markdown table through glamour (terminal output).
	Table
)

var (
	faint    = color.New(color.Faint).SprintFunc()
	enabled  = color.New(color.FgGreen).SprintFunc()
	disabled = color.New(color.FgRed).SprintFunc()
)

// Tags prints tags in the given style.
func Tags(w io.Writer, tags []store.Tag, style Style) error {
	switch style {
	case Long:
		return LongList(w, tags)
	case Table:
		fmt.Fprint(w, Render(Markdown(tags)))
		return nil
	default:
		return List(w, tags)
	}
}

// List prints tags in simple list format.
func List(w io.Writer, tags []store.Tag) error {
	for _, t := range tags {
		fmt.Fprintf(w, "%d  %s\n", t.ID, t.Name)
	}
	return nil
}

// LongList prints tags with id, usage, state, category and creation date.
//
// Fixed-width columns come first so they align; NAME and CATEGORY vary in
// width and are padded to the longest value.
func LongList(w io.Writer, tags []store.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	maxName, maxCat := 4, 8 // minimum "NAME", "CATEGORY"
	for _, t := range tags {
		maxName = max(maxName, len(t.Name))
		maxCat = max(maxCat, len(orDash(t.Category)))
	}

	fmt.Fprintf(w, "%6s  %6s  %-8s  %-10s  %-*s  %s\n", "ID", "USES", "STATE", "CREATED", maxCat, "CATEGORY", "NAME")
	for _, t := range tags {
		fmt.Fprintf(w, "%6d  %6d  %s  %s  %-*s  %s\n",
			t.ID,
			t.UsageCount,
			state(t.Enabled),
			time.Unix(t.CreatedAt, 0).Format("2006-01-02"),
			maxCat, orDash(t.Category),
			t.Name,
		)
	}
	return nil
}

// state returns the padded, colourised enabled flag.
func state(on bool) string {
	if on {
		return enabled(fmt.Sprintf("%-8s", "enabled"))
	}
	return disabled(fmt.Sprintf("%-8s", "disabled"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Markdown returns tags as a markdown table.
func Markdown(tags []store.Tag) string {
	var b strings.Builder
	b.WriteString("| ID | Name | Category | Uses | Enabled |\n")
	b.WriteString("|---:|------|----------|-----:|:-------:|\n")
	for _, t := range tags {
		on := "yes"
		if !t.Enabled {
			on = "no"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n",
			t.ID, escapeCell(t.Name), escapeCell(orDash(t.Category)), t.UsageCount, on)
	}
	return b.String()
}

// escapeCell keeps pipes in names from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render renders markdown for the terminal. On failure the markdown is
// returned unchanged.
func Render(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Stats prints aggregate counts.
func Stats(w io.Writer, st *store.Stats) error {
	rows := []struct {
		label string
		value any
	}{
		{"policy", st.Policy},
		{"tags", st.Tags},
		{"enabled", st.Enabled},
		{"disabled", st.Disabled},
		{"missing external ids", st.MissingExternalIDs},
		{"taggings", st.Taggings},
		{"contexts", st.Contexts},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s %v\n", faint(fmt.Sprintf("%-22s", r.label+":")), r.value)
	}
	return nil
}
