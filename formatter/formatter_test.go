package formatter

import (
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/riftlang/riftcheck/internal/callgraph"
	"github.com/riftlang/riftcheck/internal/diag"
	"github.com/riftlang/riftcheck/internal/effects"
	"github.com/riftlang/riftcheck/internal/ir"
	"github.com/riftlang/riftcheck/internal/prove"
	"github.com/riftlang/riftcheck/verify"
)

func init() {
	color.NoColor = true
}

func sampleReport() *verify.Report {
	return &verify.Report{
		Effects: map[ir.FuncID]effects.Set{
			"handler": effects.NewSet(effects.MustParse("db:r"), effects.MustParse("net:w")),
			"clamp":   effects.Empty(),
		},
		Diagnostics: []diag.Diagnostic{
			{
				Kind:     diag.EffectViolation,
				Severity: diag.SeverityError,
				Func:     "handler",
				Message:  "declared effects {db:r} do not cover computed {db:r, net:w} (missing net:w)",
				Chain: []callgraph.Edge{
					{Caller: "handler", Kind: callgraph.EdgeExternal, Qualified: "Sys.Net.Http.Post"},
				},
			},
			{
				Kind:           diag.ContractDisproven,
				Severity:       diag.SeverityWarning,
				Func:           "dec",
				Message:        "postcondition (result >= 0) of dec fails when result = -1, x = 0",
				Counterexample: map[string]int64{"x": 0, "result": -1},
			},
		},
		Outcomes: []prove.Outcome{
			{
				Contract: prove.ContractID{Func: "clamp", Index: 0},
				Expr:     ir.Binary{Op: ir.OpGte, Left: ir.ResultRef{}, Right: ir.IntLit{Val: 0}},
				Kind:     prove.Proven,
			},
			{
				Contract: prove.ContractID{Func: "dec", Index: 0},
				Kind:     prove.Unproven,
				Reason:   prove.ReasonTimeout,
			},
			{
				Contract:  prove.ContractID{Func: "ext", Index: 0},
				Kind:      prove.Unsupported,
				Construct: "call to abs",
			},
		},
		Elisions: []prove.ContractID{{Func: "clamp", Index: 0}},
	}
}

func TestFormatDefault(t *testing.T) {
	out := Format(sampleReport(), false)

	assert.Contains(t, out, "error: effect-violation")
	assert.Contains(t, out, "warning: contract-disproven")
	assert.Contains(t, out, "call chain: handler -> Sys.Net.Http.Post")
	assert.Contains(t, out, "proven clamp:post[0]")
	assert.Contains(t, out, "1 error(s), 1 warning(s), 1/3 contract(s) proven")

	// Quiet outcomes stay out of the default rendering.
	assert.NotContains(t, out, "unproven")
	assert.NotContains(t, out, "unsupported")
}

func TestFormatVerbose(t *testing.T) {
	out := Format(sampleReport(), true)

	assert.Contains(t, out, "unproven dec:post[0]")
	assert.Contains(t, out, "timeout; runtime check kept")
	assert.Contains(t, out, "unsupported ext:post[0]: call to abs")
}

func TestFormatEffectsSorted(t *testing.T) {
	out := FormatEffects(sampleReport())

	assert.Contains(t, out, "clamp {}")
	assert.Contains(t, out, "handler {db:r, net:w}")
	assert.Less(t, strings.Index(out, "clamp"), strings.Index(out, "handler"))
}
