package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"hardsub/internal/preflight"
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

var statusStyles = map[statusKind]struct{ tag, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// formatStatusLine lays out one uncoloured doctor line with the label padded
// so the status tags line up.
func formatStatusLine(label string, kind statusKind, message string) string {
	line := fmt.Sprintf("  %-20s [%s]", label+":", statusStyles[kind].tag)
	if message != "" {
		line += " " + message
	}
	return line
}

// doctorReport writes doctor sections and counts failed checks.
type doctorReport struct {
	out      io.Writer
	colorize bool
	failed   int
}

func newDoctorReport(out io.Writer) *doctorReport {
	return &doctorReport{out: out, colorize: isTerminal(out)}
}

func (r *doctorReport) paint(color, s string) string {
	if !r.colorize || color == "" {
		return s
	}
	return color + s + ansiReset
}

func (r *doctorReport) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(r.out, r.paint(ansiBlue, heading))
	fmt.Fprintln(r.out, r.paint(ansiBlue, strings.Repeat("-", len(heading))))
}

func (r *doctorReport) status(label string, kind statusKind, message string) {
	fmt.Fprintln(r.out, r.paint(statusStyles[kind].color, formatStatusLine(label, kind, message)))
}

// checks prints a section of preflight results and adds its failures to the
// report total.
func (r *doctorReport) checks(title string, results []preflight.Result) {
	r.section(title)
	for _, res := range results {
		kind := statusOK
		if !res.Passed {
			kind = statusError
			r.failed++
		}
		r.status(res.Name, kind, res.Detail)
	}
	fmt.Fprintln(r.out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
