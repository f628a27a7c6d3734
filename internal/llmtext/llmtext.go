// Package llmtext is the strict, template-only text renderer over routing
// output named in spec.md §6's "LLM explanation layer" boundary: it turns
// a []model.ScoredRoute into human-facing prose using a fixed
// text/template, never a network call or a generation model. The
// get_routes explain_flag toggles whether this package runs at all.
package llmtext

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/dcmshi/transit-planner/internal/model"
)

const routeTemplate = `Option {{.Index}}: {{.Summary}} ({{.Minutes}} min, {{.Transfers}} transfer{{if ne .Transfers 1}}s{{end}}, risk {{.RiskLabel}}){{if .Modifiers}} — {{.Modifiers}}{{end}}
`

var tmpl = template.Must(template.New("route").Parse(routeTemplate))

type routeView struct {
	Index     int
	Summary   string
	Minutes   int
	Transfers int
	RiskLabel model.RiskLabel
	Modifiers string
}

// Explain renders one line per route: a plain-language leg summary,
// travel time, transfer count, and risk label, in ranked order. Returns
// "" for an empty slice rather than an empty template block.
func Explain(routes []model.ScoredRoute) string {
	if len(routes) == 0 {
		return ""
	}

	var b strings.Builder
	for i, r := range routes {
		view := routeView{
			Index:     i + 1,
			Summary:   summarizeLegs(r.Legs),
			Minutes:   (r.TotalTravelSeconds + 59) / 60,
			Transfers: r.Transfers,
			RiskLabel: r.RiskLabel,
			Modifiers: distinctModifiers(r.Legs),
		}
		if err := tmpl.Execute(&b, view); err != nil {
			// The template is a package-level constant compiled once at
			// init; a render failure here means a coding error, not bad
			// input, so surface it plainly rather than swallow it.
			b.WriteString(fmt.Sprintf("Option %d: (render error: %v)\n", view.Index, err))
		}
	}
	return b.String()
}

// summarizeLegs renders "A -> B (R1) -> C (walk) -> D (R2)".
func summarizeLegs(legs []model.Leg) string {
	if len(legs) == 0 {
		return ""
	}
	var parts []string
	parts = append(parts, stopLabel(legs[0].FromStopName, legs[0].FromStopID))
	for _, l := range legs {
		via := l.RouteID
		if l.Kind == model.LegWalk {
			via = "walk"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", stopLabel(l.ToStopName, l.ToStopID), via))
	}
	return strings.Join(parts, " -> ")
}

func stopLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// distinctModifiers collects the unique risk modifier strings across every
// trip leg, in first-seen order, joined for a one-line caveat.
func distinctModifiers(legs []model.Leg) string {
	seen := map[string]bool{}
	var out []string
	for _, l := range legs {
		if l.Risk == nil {
			continue
		}
		for _, m := range l.Risk.Modifiers {
			if seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return strings.Join(out, ", ")
}
