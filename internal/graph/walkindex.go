package graph

import (
	"math"
	"sort"

	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// WalkPair is one candidate walk link, canonicalized A < B so the
// spatial-index and brute-force implementations can be compared for
// exact equality without worrying about direction.
type WalkPair struct {
	A, B      string
	DistanceM float64
}

const metresPerDegreeLat = 111320.0

// indexedWalkPairs finds every stop pair within maxMetres using a
// latitude-sorted band index: binary-search the latitude window, apply a
// cheap longitude prefilter, then verify with haversine. Must produce an
// identical edge set to bruteForceWalkPairs for the same input (testable
// property 6).
func indexedWalkPairs(stops []model.Stop, maxMetres float64) []WalkPair {
	sorted := make([]model.Stop, len(stops))
	copy(sorted, stops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lat < sorted[j].Lat })

	lats := make([]float64, len(sorted))
	for i, s := range sorted {
		lats[i] = s.Lat
	}

	deltaLat := maxMetres / metresPerDegreeLat

	seen := map[pairKey]bool{}
	var out []WalkPair

	for i, a := range sorted {
		lo := sort.SearchFloat64s(lats, a.Lat-deltaLat)
		hi := sort.Search(len(lats), func(idx int) bool { return lats[idx] > a.Lat+deltaLat })

		cosLat := math.Cos(a.Lat * math.Pi / 180)
		if cosLat < 1e-9 {
			cosLat = 1e-9
		}
		deltaLon := maxMetres / (metresPerDegreeLat * cosLat)

		for j := lo; j < hi; j++ {
			if j == i {
				continue
			}
			b := sorted[j]
			if a.ID == b.ID {
				continue
			}
			if math.Abs(a.Lon-b.Lon) > deltaLon {
				continue
			}
			d := timeutil.HaversineM(a.Lat, a.Lon, b.Lat, b.Lon)
			if d > maxMetres {
				continue
			}
			loID, hiID := a.ID, b.ID
			if loID > hiID {
				loID, hiID = hiID, loID
			}
			k := pairKey{loID, hiID}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, WalkPair{A: loID, B: hiID, DistanceM: d})
		}
	}
	return out
}
