package routing

import "container/heap"

// dijkstraItem is a lightweight wrapper used only within the priority
// queue: one stop_id and its best known tentative distance so far.
type dijkstraItem struct {
	stopID string
	dist   int
	index  int // maintained by container/heap
}

// distQueue is a min-heap over dijkstraItems, ordered by dist with stop_id
// as a deterministic tie-break so identical inputs always explore nodes in
// the same order.
type distQueue []*dijkstraItem

func (q distQueue) Len() int { return len(q) }

func (q distQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].stopID < q[j].stopID
}

func (q distQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *distQueue) Push(x any) {
	item := x.(*dijkstraItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *distQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// dijkstraShortestPath finds the minimum-weight simple path from source to
// target over the projected single-edge digraph, honoring excludedNodes
// and excludedEdges (Yen's spur-search exclusions). Returns the ordered
// node path and its total weight, or ok=false if target is unreachable.
func dijkstraShortestPath(adj map[string][]pairKey, projected map[pairKey]projectedEdge, source, target string, excludedNodes map[string]bool, excludedEdges map[pairKey]bool) ([]string, int, bool) {
	dist := map[string]int{source: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := &distQueue{}
	heap.Init(pq)
	heap.Push(pq, &dijkstraItem{stopID: source, dist: 0})

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*dijkstraItem)
		if visited[cur.stopID] {
			continue
		}
		visited[cur.stopID] = true

		if cur.stopID == target {
			break
		}

		for _, edgeKeyPair := range adj[cur.stopID] {
			if excludedNodes[edgeKeyPair.To] || excludedEdges[edgeKeyPair] {
				continue
			}
			edge := projected[edgeKeyPair]
			nd := cur.dist + edge.Weight
			if existing, ok := dist[edgeKeyPair.To]; !ok || nd < existing {
				dist[edgeKeyPair.To] = nd
				prev[edgeKeyPair.To] = cur.stopID
				heap.Push(pq, &dijkstraItem{stopID: edgeKeyPair.To, dist: nd})
			}
		}
	}

	finalDist, ok := dist[target]
	if !ok {
		return nil, 0, false
	}

	path := []string{target}
	at := target
	for at != source {
		p, ok := prev[at]
		if !ok {
			return nil, 0, false
		}
		path = append(path, p)
		at = p
	}
	reverse(path)
	return path, finalDist, true
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
