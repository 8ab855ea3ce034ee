// Package formatter renders a verification report for humans. Diagnostics
// come first, then contract outcomes, then a one-line summary.
package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/diag"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/prove"
	"github.com/riftlang/riftcheck/verify"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	kindStyle    = color.New(color.FgYellow, color.Bold)
	funcStyle    = color.New(color.FgCyan, color.Bold)
	chainStyle   = color.New(color.FgHiBlue)
	provenStyle  = color.New(color.FgGreen, color.Bold)
	quietStyle   = color.New(color.FgWhite)
)

// Format renders the whole report.
func Format(report *verify.Report, verbose bool) string {
	var b strings.Builder

	for _, d := range report.Diagnostics {
		writeDiagnostic(&b, d)
	}
	writeOutcomes(&b, report.Outcomes, verbose)
	writeSummary(&b, report)
	return b.String()
}

func writeDiagnostic(b *strings.Builder, d diag.Diagnostic) {
	sev := warningStyle.Sprint("warning: ")
	if d.Severity == diag.SeverityError {
		sev = errorStyle.Sprint("error: ")
	}
	b.WriteString(sev)
	b.WriteString(kindStyle.Sprint(d.Kind.String()))
	b.WriteString("\n --> ")
	b.WriteString(funcStyle.Sprint(string(d.Func)))
	b.WriteString("\n     ")
	b.WriteString(d.Message)
	b.WriteString("\n")

	if len(d.Chain) > 0 {
		b.WriteString("     ")
		b.WriteString(chainStyle.Sprint(renderChain(d)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderChain(d diag.Diagnostic) string {
	parts := make([]string, 0, len(d.Chain)+1)
	parts = append(parts, string(d.Func))
	for _, e := range d.Chain {
		if e.Kind == callgraph.EdgeExternal {
			parts = append(parts, e.Qualified)
		} else {
			parts = append(parts, string(e.Callee))
		}
	}
	return "call chain: " + strings.Join(parts, " -> ")
}

func writeOutcomes(b *strings.Builder, outcomes []prove.Outcome, verbose bool) {
	for _, o := range outcomes {
		switch o.Kind {
		case prove.Proven:
			fmt.Fprintf(b, "%s %s: %s (runtime check elided)\n",
				provenStyle.Sprint("proven"), o.Contract, o.Expr)
		case prove.Unproven:
			if verbose {
				fmt.Fprintf(b, "%s %s: %s (%s; runtime check kept)\n",
					quietStyle.Sprint("unproven"), o.Contract, o.Expr, o.Reason)
			}
		case prove.Unsupported:
			if verbose {
				fmt.Fprintf(b, "%s %s: %s (runtime check kept)\n",
					quietStyle.Sprint("unsupported"), o.Contract, o.Construct)
			}
		}
	}
}

func writeSummary(b *strings.Builder, report *verify.Report) {
	var errs, warns int
	for _, d := range report.Diagnostics {
		if d.Severity == diag.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	var proven int
	for _, o := range report.Outcomes {
		if o.Kind == prove.Proven {
			proven++
		}
	}
	fmt.Fprintf(b, "%d error(s), %d warning(s), %d/%d contract(s) proven in %s\n",
		errs, warns, proven, len(report.Outcomes), report.Duration.Round(time.Millisecond))
}

// FormatEffects renders the computed effect table, sorted by function.
func FormatEffects(report *verify.Report) string {
	ids := make([]ir.FuncID, 0, len(report.Effects))
	for id := range report.Effects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%s %s\n", funcStyle.Sprint(string(id)), report.Effects[id])
	}
	return b.String()
}
