// Package diag turns propagation results and contract outcomes into the
// diagnostics the compiler surfaces, and owns the elision policy: which
// runtime contract checks may be dropped from generated code.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/propagate"
	"github.com/riftlang/riftcheck/internal/prove"
)

// Kind classifies a diagnostic.
type Kind int

const (
	EffectViolation Kind = iota
	UnknownExternalEffect
	ContractDisproven
)

func (k Kind) String() string {
	switch k {
	case EffectViolation:
		return "effect-violation"
	case UnknownExternalEffect:
		return "unknown-external-effect"
	case ContractDisproven:
		return "contract-disproven"
	default:
		return "?"
	}
}

// Severity ranks a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "?"
	}
}

// Diagnostic is one reportable finding.
type Diagnostic struct {
	Kind           Kind
	Severity       Severity
	Func           ir.FuncID
	Message        string
	Chain          []callgraph.Edge
	Counterexample map[string]int64
}

// Options configures severity mapping.
type Options struct {
	// EnforceEffects makes effect violations and unknown externals
	// errors; when false they downgrade to warnings.
	EnforceEffects bool
	// DenyDisproven upgrades contract disproofs from warnings to errors.
	DenyDisproven bool
}

// FromEffects maps a propagation result to diagnostics, in deterministic
// order.
func FromEffects(res *propagate.Result, opts Options) []Diagnostic {
	sev := SeverityWarning
	if opts.EnforceEffects {
		sev = SeverityError
	}

	out := make([]Diagnostic, 0, len(res.Violations)+len(res.Unknowns))
	for _, v := range res.Violations {
		out = append(out, Diagnostic{
			Kind:     EffectViolation,
			Severity: sev,
			Func:     v.Func,
			Message:  violationMessage(v),
			Chain:    v.Chain,
		})
	}
	for _, u := range res.Unknowns {
		out = append(out, Diagnostic{
			Kind:     UnknownExternalEffect,
			Severity: sev,
			Func:     u.Func,
			Message:  fmt.Sprintf("external call %s has no manifest entry; declare its effects or run in permissive mode", u.Qualified),
		})
	}
	return out
}

func violationMessage(v propagate.Violation) string {
	missing := make([]string, len(v.Missing))
	for i, c := range v.Missing {
		missing[i] = string(c)
	}
	msg := fmt.Sprintf("declared effects %s do not cover computed %s (missing %s)",
		v.Declared, v.Computed, strings.Join(missing, ", "))
	if len(v.Chain) > 0 {
		msg += " via " + chainString(v.Func, v.Chain)
	}
	return msg
}

func chainString(from ir.FuncID, chain []callgraph.Edge) string {
	parts := make([]string, 0, len(chain)+1)
	parts = append(parts, string(from))
	for _, e := range chain {
		if e.Kind == callgraph.EdgeExternal {
			parts = append(parts, e.Qualified)
		} else {
			parts = append(parts, string(e.Callee))
		}
	}
	return strings.Join(parts, " -> ")
}

// FromOutcomes maps contract outcomes to diagnostics. Disproofs are
// always reported; Unproven and Unsupported stay silent here (the
// orchestrator logs them in verbose mode) because the runtime check
// remains in place either way.
func FromOutcomes(outcomes []prove.Outcome, opts Options) []Diagnostic {
	sev := SeverityWarning
	if opts.DenyDisproven {
		sev = SeverityError
	}

	var out []Diagnostic
	for _, o := range outcomes {
		if o.Kind != prove.Disproven {
			continue
		}
		out = append(out, Diagnostic{
			Kind:           ContractDisproven,
			Severity:       sev,
			Func:           o.Contract.Func,
			Message:        disproofMessage(o),
			Counterexample: o.Counterexample,
		})
	}
	return out
}

func disproofMessage(o prove.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "postcondition %s of %s fails", o.Expr, o.Contract.Func)

	keys := make([]string, 0, len(o.Counterexample))
	for k := range o.Counterexample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		b.WriteString(" when ")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s = %d", k, o.Counterexample[k])
		}
	}
	return b.String()
}

// Elisions returns the contracts whose runtime checks may be removed.
// Only proofs qualify; everything else keeps full runtime enforcement.
func Elisions(outcomes []prove.Outcome) []prove.ContractID {
	var out []prove.ContractID
	for _, o := range outcomes {
		if o.Elidable() {
			out = append(out, o.Contract)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic is error-severity.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
