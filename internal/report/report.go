// Package report prints validation outcomes for people and for scripts.
//
// On a terminal the output is styled with lipgloss; otherwise it is plain
// text with one tab- or colon-separated record per line.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Neumenon/gedcom7/gedcom"
)

var (
	colorOK    = lipgloss.Color("#2CD7C7")
	colorWarn  = lipgloss.Color("#F4D03F")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#6C8A94")
)

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	muted lipgloss.Style
	code  lipgloss.Style
	box   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(colorOK),
		ok:    r.NewStyle().Foreground(colorOK),
		warn:  r.NewStyle().Foreground(colorWarn),
		err:   r.NewStyle().Foreground(colorError),
		muted: r.NewStyle().Foreground(colorMuted),
		code:  r.NewStyle().Bold(true),
		box:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1),
	}
}

// Printer writes reports to one destination.
type Printer struct {
	w      io.Writer
	styled bool
	s      styles
}

// New returns a printer that styles its output only when w is a terminal.
func New(w io.Writer) *Printer {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return NewStyled(w)
	}
	return NewPlain(w)
}

// NewPlain returns a printer for scripts.
func NewPlain(w io.Writer) *Printer {
	return &Printer{w: w}
}

// NewStyled returns a printer for people.
func NewStyled(w io.Writer) *Printer {
	return &Printer{w: w, styled: true, s: newStyles(w)}
}

// Styled reports whether output is styled.
func (p *Printer) Styled() bool { return p.styled }

// File prints the outcome of one document. err is a failure that stopped
// processing, such as an unreadable file.
func (p *Printer) File(name string, r *gedcom.Report, err error) {
	switch {
	case err != nil && (r == nil || r.Valid()):
		if p.styled {
			fmt.Fprintf(p.w, "%s %s %s\n", p.s.err.Render("✗"), name, p.s.muted.Render("("+err.Error()+")"))
		} else {
			fmt.Fprintf(p.w, "ERROR\t%s\t%s\n", name, err)
		}
		return
	case r == nil || r.Valid():
		if p.styled {
			fmt.Fprintf(p.w, "%s %s\n", p.s.ok.Render("✓"), name)
		} else {
			fmt.Fprintf(p.w, "OK\t%s\n", name)
		}
	default:
		if p.styled {
			fmt.Fprintf(p.w, "%s %s %s\n", p.s.err.Render("✗"), name,
				p.s.muted.Render(fmt.Sprintf("(%d %s)", len(r.Violations), plural(len(r.Violations), "violation"))))
		} else {
			fmt.Fprintf(p.w, "FAIL\t%s\t%d\n", name, len(r.Violations))
		}
		for _, v := range r.Violations {
			p.violation(name, v, false)
		}
	}
	if r != nil {
		for _, v := range r.Warnings {
			p.violation(name, v, true)
		}
	}
}

func (p *Printer) violation(name string, v gedcom.Violation, warning bool) {
	if !p.styled {
		kind := "error"
		if warning {
			kind = "warning"
		}
		fmt.Fprintf(p.w, "%s:%d: %s: %s [%s]\n", name, v.Line, kind, describe(v), v.Code)
		return
	}
	icon := p.s.err.Render("•")
	if warning {
		icon = p.s.warn.Render("⚠")
	}
	loc := "     "
	if v.Line > 0 {
		loc = fmt.Sprintf("%5d", v.Line)
	}
	fmt.Fprintf(p.w, "  %s %s %s %s\n", icon, p.s.muted.Render(loc), p.s.code.Render(v.Code), describe(v))
}

func describe(v gedcom.Violation) string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Summary prints the totals of a run.
func (p *Printer) Summary(valid, invalid, failed int) {
	total := valid + invalid + failed
	if !p.styled {
		fmt.Fprintf(p.w, "TOTAL\t%d\tvalid=%d\tinvalid=%d\terror=%d\n", total, valid, invalid, failed)
		return
	}
	style := p.s.ok
	if invalid+failed > 0 {
		style = p.s.err
	}
	fmt.Fprintln(p.w, style.Render(fmt.Sprintf("%d %s: %d valid, %d invalid, %d failed",
		total, plural(total, "file"), valid, invalid, failed)))
}

// Counts prints a titled table of counts, largest first.
func (p *Printer) Counts(title string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	width := 0
	for k := range counts {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if !p.styled {
		for _, k := range keys {
			fmt.Fprintf(p.w, "%s\t%s\t%d\n", title, k, counts[k])
		}
		return
	}
	var sb strings.Builder
	sb.WriteString(p.s.title.Render(title))
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n%-*s  %6d", width, k, counts[k])
	}
	fmt.Fprintln(p.w, p.s.box.Render(sb.String()))
}

// List prints one item per line under a title.
func (p *Printer) List(title string, items []string) {
	if !p.styled {
		for _, it := range items {
			fmt.Fprintln(p.w, it)
		}
		return
	}
	fmt.Fprintln(p.w, p.s.title.Render(title))
	for _, it := range items {
		fmt.Fprintf(p.w, "  %s %s\n", p.s.muted.Render("•"), it)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
