package llmtext

import (
	"strings"
	"testing"

	"github.com/dcmshi/transit-planner/internal/model"
)

func TestExplainEmptyRoutes(t *testing.T) {
	if got := Explain(nil); got != "" {
		t.Errorf("Explain(nil) = %q, want empty", got)
	}
}

func TestExplainRendersSummaryAndRisk(t *testing.T) {
	routes := []model.ScoredRoute{
		{
			Legs: []model.Leg{
				{Kind: model.LegTrip, FromStopID: "A", FromStopName: "Alpha", ToStopID: "B", ToStopName: "Bravo", RouteID: "R1",
					Risk: &model.LegRisk{RiskLabel: model.RiskLow, Modifiers: []string{"weekend"}}},
			},
			TotalTravelSeconds: 600,
			Transfers:          0,
			RiskLabel:          model.RiskLow,
		},
	}

	out := Explain(routes)
	if !strings.Contains(out, "Option 1:") {
		t.Errorf("expected an Option 1 line, got %q", out)
	}
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "Bravo") {
		t.Errorf("expected stop names in summary, got %q", out)
	}
	if !strings.Contains(out, "10 min") {
		t.Errorf("expected 600s rounded up to 10 min, got %q", out)
	}
	if !strings.Contains(out, "weekend") {
		t.Errorf("expected modifier caveat, got %q", out)
	}
}

func TestExplainPluralizesTransfers(t *testing.T) {
	routes := []model.ScoredRoute{{Legs: []model.Leg{{Kind: model.LegTrip, RouteID: "R1"}}, Transfers: 2}}
	out := Explain(routes)
	if !strings.Contains(out, "2 transfers") {
		t.Errorf("expected pluralized transfers, got %q", out)
	}

	routes[0].Transfers = 1
	out = Explain(routes)
	if !strings.Contains(out, "1 transfer,") {
		t.Errorf("expected singular transfer, got %q", out)
	}
}
