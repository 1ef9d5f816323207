// Package diag renders compiler diagnostics: a colored header, the
// offending source line, and a caret underline. Lexing and parsing never
// import this package, and analysis uses it only to build warnings — fatal
// errors from all three are plain `error` values, and the driver (cmd/tauc)
// decides how to print them and exits.
package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gmofishsauce/tauc/internal/token"
)

// Severity distinguishes a fatal diagnostic from one the driver can print
// and continue past.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

var (
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// Diagnostic is one renderable error or warning anchored at a source
// location.
type Diagnostic struct {
	Severity Severity
	Loc      token.Location
	Title    string
	Message  string
}

// New builds an error-severity diagnostic.
func New(loc token.Location, title, message string) Diagnostic {
	return Diagnostic{Severity: SeverityError, Loc: loc, Title: title, Message: message}
}

// Warning builds a warning-severity diagnostic.
func Warning(loc token.Location, title, message string) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Loc: loc, Title: title, Message: message}
}

// Render formats the diagnostic: a `[file:row:col]> title` header colored
// by severity, the offending source line with a row gutter, a caret
// underline spanning the offending span, and the explanatory message.
func (d Diagnostic) Render() string {
	var b strings.Builder

	headerColor := red
	if d.Severity == SeverityWarning {
		headerColor = yellow
	}
	fmt.Fprintf(&b, "%s %s\n", headerColor(fmt.Sprintf("[%s]>", d.Loc)), bold(d.Title))

	line := sourceLine(d.Loc)
	gutter := fmt.Sprintf("%d", d.Loc.Row+1)
	fmt.Fprintf(&b, "%s %s %s\n", gray(gutter), gray("|"), line)

	pad := strings.Repeat(" ", len(gutter)) + " " + gray("|") + " " + strings.Repeat(" ", d.Loc.Col)
	caretLen := d.Loc.Len
	if caretLen < 1 {
		caretLen = 1
	}
	fmt.Fprintf(&b, "%s%s\n", pad, headerColor(strings.Repeat("^", caretLen)))

	if d.Message != "" {
		fmt.Fprintf(&b, "%s\n", d.Message)
	}
	return b.String()
}

// sourceLine extracts the full line of source text containing loc,
// without the lexeme's own escaping — loc.Source is the original buffer.
func sourceLine(loc token.Location) string {
	src := loc.Source
	lineStart := loc.Offset
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := loc.Offset
	for lineEnd < len(src) && src[lineEnd] != '\n' {
		lineEnd++
	}
	return string(src[lineStart:lineEnd])
}
