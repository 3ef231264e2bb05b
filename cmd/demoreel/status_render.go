package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func styleFor(kind statusKind) (string, string) {
	if kind < 0 || int(kind) >= len(statusStyles) {
		return "INFO", ""
	}
	s := statusStyles[kind]
	return s.tag, s.color
}

// renderStatusLine aligns "label: [TAG] message" for the status report.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag, color := styleFor(kind)
	var b strings.Builder
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", tag)
	if message != "" {
		b.WriteString(" ")
		b.WriteString(message)
	}
	return paint(b.String(), color, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	underline := strings.Repeat("-", len(heading))
	return []string{paint(heading, ansiBlue, colorize), paint(underline, ansiBlue, colorize)}
}

func paint(text, color string, colorize bool) string {
	if !colorize || color == "" {
		return text
	}
	return color + text + ansiReset
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
