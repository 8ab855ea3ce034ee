package cmd

import (
	"sort"

	"github.com/riftlang/riftcheck/internal/prove"
	"github.com/riftlang/riftcheck/verify"
)

type jsonReport struct {
	Effects     map[string][]string `json:"effects"`
	Diagnostics []jsonDiagnostic    `json:"diagnostics"`
	Outcomes    []jsonOutcome       `json:"outcomes"`
	Elisions    []string            `json:"elisions"`
	DurationMS  int64               `json:"duration_ms"`
	Failed      bool                `json:"failed"`
}

type jsonDiagnostic struct {
	Kind           string           `json:"kind"`
	Severity       string           `json:"severity"`
	Func           string           `json:"func"`
	Message        string           `json:"message"`
	Chain          []string         `json:"chain,omitempty"`
	Counterexample map[string]int64 `json:"counterexample,omitempty"`
}

type jsonOutcome struct {
	Contract       string           `json:"contract"`
	Kind           string           `json:"kind"`
	Reason         string           `json:"reason,omitempty"`
	Construct      string           `json:"construct,omitempty"`
	Counterexample map[string]int64 `json:"counterexample,omitempty"`
	Elidable       bool             `json:"elidable"`
}

func jsonView(report *verify.Report) jsonReport {
	out := jsonReport{
		Effects:    make(map[string][]string, len(report.Effects)),
		DurationMS: report.Duration.Milliseconds(),
		Failed:     report.Failed(),
	}
	for id, set := range report.Effects {
		codes := set.Strings()
		sort.Strings(codes)
		out.Effects[string(id)] = codes
	}
	for _, d := range report.Diagnostics {
		jd := jsonDiagnostic{
			Kind:           d.Kind.String(),
			Severity:       d.Severity.String(),
			Func:           string(d.Func),
			Message:        d.Message,
			Counterexample: d.Counterexample,
		}
		for _, e := range d.Chain {
			if e.Qualified != "" {
				jd.Chain = append(jd.Chain, e.Qualified)
			} else {
				jd.Chain = append(jd.Chain, string(e.Callee))
			}
		}
		out.Diagnostics = append(out.Diagnostics, jd)
	}
	for _, o := range report.Outcomes {
		jo := jsonOutcome{
			Contract: o.Contract.String(),
			Kind:     o.Kind.String(),
			Elidable: o.Elidable(),
		}
		if o.Kind == prove.Unproven {
			jo.Reason = o.Reason.String()
		}
		if o.Kind == prove.Unsupported {
			jo.Construct = o.Construct
		}
		if o.Kind == prove.Disproven {
			jo.Counterexample = o.Counterexample
		}
		out.Outcomes = append(out.Outcomes, jo)
	}
	for _, c := range report.Elisions {
		out.Elisions = append(out.Elisions, c.String())
	}
	return out
}
