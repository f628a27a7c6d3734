package routing

import "github.com/dcmshi/transit-planner/internal/model"

// signatureSet tracks route signatures already emitted within one
// find_routes call, implementing step 5's deduplication.
type signatureSet map[string]bool

func (s signatureSet) seen(legs []model.Leg) bool {
	return s[model.Signature(legs)]
}

func (s signatureSet) record(legs []model.Leg) {
	s[model.Signature(legs)] = true
}
