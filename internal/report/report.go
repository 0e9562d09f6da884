// Package report renders ranked distributions for people: a go-pretty table
// per query with locale-formatted counts, plus the skip and substitution
// counts of the pass that produced it.
package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mortstat/internal/aggregate"
)

// Section is one query's output.
type Section struct {
	Title   string
	Entries []aggregate.Entry
	Stats   aggregate.Stats
}

// Formatter renders sections. Plain mode prints "label: count" lines with
// bare integers instead of a table.
type Formatter struct {
	Plain bool

	p *message.Printer
}

// New returns a table formatter using the number conventions of tag.
func New(tag language.Tag) *Formatter {
	return &Formatter{p: message.NewPrinter(tag)}
}

// Count formats n with grouping separators, e.g. 2,813,503.
func (f *Formatter) Count(n int) string { return f.p.Sprintf("%d", n) }

// num is Count in table mode and a bare integer in plain mode.
func (f *Formatter) num(n int) string {
	if f.Plain {
		return strconv.Itoa(n)
	}
	return f.Count(n)
}

// Render writes s to w.
func (f *Formatter) Render(w io.Writer, s Section) error {
	var b strings.Builder
	if f.Plain {
		f.plain(&b, s)
	} else {
		f.table(&b, s)
	}
	if line := f.notes(s.Stats); line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (f *Formatter) plain(b *strings.Builder, s Section) {
	b.WriteString(s.Title)
	b.WriteByte('\n')
	for _, e := range s.Entries {
		fmt.Fprintf(b, "%s: %s\n", e.Key.Label, f.num(e.Count))
	}
}

// table writes the title on its own line; go-pretty wraps a title to the
// table width.
func (f *Formatter) table(b *strings.Builder, s Section) {
	b.WriteString(s.Title)
	b.WriteByte('\n')
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Group", "Count", "Share"})

	total := 0
	for _, e := range s.Entries {
		total += e.Count
	}
	for i, e := range s.Entries {
		tbl.AppendRow(table.Row{i + 1, e.Key.Label, f.Count(e.Count), f.share(e.Count, total)})
	}
	tbl.AppendFooter(table.Row{"", "Total", f.Count(total), ""})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	b.WriteString(tbl.Render())
	b.WriteByte('\n')
}

func (f *Formatter) share(n, total int) string {
	if total == 0 {
		return ""
	}
	return f.p.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

// notes summarizes records that did not reach the table as counted. It is
// empty when every line decoded cleanly.
func (f *Formatter) notes(st aggregate.Stats) string {
	var parts []string
	kinds := make([]string, 0, len(st.Skipped))
	for k, n := range st.Skipped {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%s", k, f.num(st.Skipped[k])))
	}
	var out []string
	if len(parts) > 0 {
		out = append(out, "skipped "+strings.Join(parts, " "))
	}
	if st.Substituted > 0 {
		out = append(out, "substituted "+f.num(st.Substituted))
	}
	return strings.Join(out, "; ")
}
