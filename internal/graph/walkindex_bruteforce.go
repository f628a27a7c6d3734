package graph

import (
	"github.com/dcmshi/transit-planner/internal/model"
	"github.com/dcmshi/transit-planner/internal/timeutil"
)

// bruteForceWalkPairs is the O(n^2) reference implementation used as a
// test oracle: for every stop pair, verify with haversine directly. No
// spatial index — used only to prove indexedWalkPairs produces an
// identical edge set (testable property 6), not in the build path.
func bruteForceWalkPairs(stops []model.Stop, maxMetres float64) []WalkPair {
	var out []WalkPair
	for i := 0; i < len(stops); i++ {
		for j := i + 1; j < len(stops); j++ {
			a, b := stops[i], stops[j]
			if a.ID == b.ID {
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
			out = append(out, WalkPair{A: loID, B: hiID, DistanceM: d})
		}
	}
	return out
}
