// Package render formats passages and session messages for the terminal.
//
// Output is styled with lipgloss when the destination is a terminal and
// written as plain text otherwise, so piped output stays greppable.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/ref"
)

// Footer is printed under every passage.
const Footer = "← back  ·  next →"

// Divider separates a passage heading from its verses.
var Divider = strings.Repeat("─", 40)

var superscripts = [10]rune{'⁰', '¹', '²', '³', '⁴', '⁵', '⁶', '⁷', '⁸', '⁹'}

// Palette
var (
	colorHeading = lipgloss.Color("#5F87FF")
	colorNotice  = lipgloss.Color("#FFD700")
	colorError   = lipgloss.Color("#E74C3C")
)

// Superscript renders n with superscript digits. Negative numbers keep their
// minus sign.
func Superscript(n int) string {
	digits := strconv.Itoa(n)
	var sb strings.Builder
	for _, r := range digits {
		if r >= '0' && r <= '9' {
			sb.WriteRune(superscripts[r-'0'])
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// FormatVerse joins a superscript verse number and its text.
func FormatVerse(n int, text string) string {
	return Superscript(n) + " " + text
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Renderer writes passages and messages to a single destination.
type Renderer struct {
	w      io.Writer
	styled bool

	heading lipgloss.Style
	muted   lipgloss.Style
	notice  lipgloss.Style
	emph    lipgloss.Style
	err     lipgloss.Style
	hint    lipgloss.Style
	box     lipgloss.Style
}

// New returns a Renderer for w, styled only when w is a terminal.
func New(w io.Writer) *Renderer {
	return NewStyled(w, IsTerminal(w))
}

// NewStyled returns a Renderer for w with styling forced on or off.
func NewStyled(w io.Writer, styled bool) *Renderer {
	lr := lipgloss.NewRenderer(w)
	return &Renderer{
		w:       w,
		styled:  styled,
		heading: lr.NewStyle().Bold(true).Foreground(colorHeading),
		muted:   lr.NewStyle().Faint(true),
		notice:  lr.NewStyle().Foreground(colorNotice),
		emph:    lr.NewStyle().Italic(true),
		err:     lr.NewStyle().Bold(true).Foreground(colorError),
		hint:    lr.NewStyle().Italic(true).Faint(true),
		box: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorNotice).
			Padding(0, 1),
	}
}

// Styled reports whether output carries terminal styling.
func (r *Renderer) Styled() bool {
	return r.styled
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// FormatPassage lays out a heading, a divider, one numbered line per verse and
// the navigation footer.
func (r *Renderer) FormatPassage(loc ref.Locator, verses []corpus.Verse) string {
	lines := make([]string, 0, len(verses)+4)
	lines = append(lines, r.style(r.heading, loc.String()), r.style(r.muted, Divider))
	for _, v := range verses {
		lines = append(lines, r.style(r.muted, Superscript(v.Number))+" "+v.Text)
	}
	lines = append(lines, "", r.style(r.muted, Footer))
	return strings.Join(lines, "\n")
}

// Passage writes a formatted passage followed by a newline.
func (r *Renderer) Passage(loc ref.Locator, verses []corpus.Verse) error {
	_, err := fmt.Fprintln(r.w, r.FormatPassage(loc, verses))
	return err
}

// Corrected announces that a book name was interpreted.
func (r *Renderer) Corrected(canonical, entered string) error {
	line := r.style(r.notice, "Interpreting book as") + " " + r.style(r.emph, canonical) + " " +
		r.style(r.hint, fmt.Sprintf("(entered '%s')", entered))
	_, err := fmt.Fprintln(r.w, line)
	return err
}

// Loaded confirms the passage that is now current.
func (r *Renderer) Loaded(loc ref.Locator) error {
	_, err := fmt.Fprintln(r.w, r.style(r.notice, "Loaded passage:")+" "+r.style(r.emph, loc.String()))
	return err
}

// Error writes msg, an optional hint and a blank line.
func (r *Renderer) Error(msg, hint string) error {
	var sb strings.Builder
	sb.WriteString(r.style(r.err, msg))
	sb.WriteByte('\n')
	if hint != "" {
		sb.WriteString(r.style(r.hint, hint))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(r.w, sb.String())
	return err
}

// Hint writes a dim single-line message.
func (r *Renderer) Hint(msg string) error {
	_, err := fmt.Fprintln(r.w, r.style(r.hint, msg))
	return err
}

// Prompt writes p without a trailing newline when styled. Plain output
// carries no prompt so it can be piped.
func (r *Renderer) Prompt(p string) error {
	if !r.styled {
		return nil
	}
	_, err := io.WriteString(r.w, r.style(r.notice, p))
	return err
}

// Panel writes text inside a rounded border when styled, or as is otherwise.
func (r *Renderer) Panel(text string) error {
	if r.styled {
		text = r.box.Render(text)
	}
	_, err := fmt.Fprintln(r.w, text)
	return err
}
