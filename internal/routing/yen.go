package routing

import "sort"

// yenCandidate is one simple node path found during k-shortest-paths
// search, with its total weight for ranking.
type yenCandidate struct {
	nodes  []string
	weight int
}

// kShortestSimplePaths implements Yen's algorithm over the projected
// single-edge digraph, examining at most maxCandidates spur searches total
// to bound the work step 2 performs before handing candidates to the
// schedule binder.
func kShortestSimplePaths(adj map[string][]pairKey, projected map[pairKey]projectedEdge, source, target string, maxCandidates int) []yenCandidate {
	firstPath, firstWeight, ok := dijkstraShortestPath(adj, projected, source, target, nil, nil)
	if !ok {
		return nil
	}

	A := []yenCandidate{{nodes: firstPath, weight: firstWeight}}
	var B []yenCandidate

	examined := 1

	for len(A) < maxCandidates && examined < maxCandidates {
		prevPath := A[len(A)-1].nodes

		for i := 0; i < len(prevPath)-1; i++ {
			if examined >= maxCandidates {
				break
			}
			spurNode := prevPath[i]
			rootPath := append([]string(nil), prevPath[:i+1]...)

			excludedEdges := map[pairKey]bool{}
			for _, p := range A {
				if pathSharesRoot(p.nodes, rootPath) {
					from := p.nodes[i]
					to := p.nodes[i+1]
					excludedEdges[pairKey{From: from, To: to}] = true
				}
			}

			excludedNodes := map[string]bool{}
			for _, n := range rootPath[:len(rootPath)-1] {
				excludedNodes[n] = true
			}

			spurPath, spurWeight, ok := dijkstraShortestPath(adj, projected, spurNode, target, excludedNodes, excludedEdges)
			examined++
			if !ok {
				continue
			}

			totalPath := append(append([]string(nil), rootPath[:len(rootPath)-1]...), spurPath...)
			totalWeight := rootWeight(projected, rootPath) + spurWeight

			if containsPath(A, totalPath) || containsCandidate(B, totalPath) {
				continue
			}
			B = append(B, yenCandidate{nodes: totalPath, weight: totalWeight})
		}

		if len(B) == 0 {
			break
		}
		sort.SliceStable(B, func(i, j int) bool { return B[i].weight < B[j].weight })
		A = append(A, B[0])
		B = B[1:]
	}

	return A
}

func pathSharesRoot(path, root []string) bool {
	if len(path) < len(root) {
		return false
	}
	for i, n := range root {
		if path[i] != n {
			return false
		}
	}
	return true
}

func rootWeight(projected map[pairKey]projectedEdge, rootPath []string) int {
	total := 0
	for i := 0; i < len(rootPath)-1; i++ {
		total += projected[pairKey{From: rootPath[i], To: rootPath[i+1]}].Weight
	}
	return total
}

func containsPath(candidates []yenCandidate, path []string) bool {
	for _, c := range candidates {
		if samePath(c.nodes, path) {
			return true
		}
	}
	return false
}

func containsCandidate(candidates []yenCandidate, path []string) bool {
	return containsPath(candidates, path)
}

func samePath(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
