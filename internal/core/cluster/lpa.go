package cluster

import (
	"sort"
)

// LabelPropagation clusters pages with the label propagation algorithm.
// Unlike ConnectedComponents it splits a connected graph into densely
// linked neighborhoods: each page repeatedly adopts the most frequent
// label among its neighbors, weighted by how many links connect them,
// until labels stop changing.
type LabelPropagation struct {
	MaxIterations int
}

func NewLabelPropagation() *LabelPropagation {
	return &LabelPropagation{
		MaxIterations: 20,
	}
}

func (d *LabelPropagation) Detect(pages []PageRef, edges []Edge) ([][]PageRef, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	// Undirected weighted adjacency; parallel links between the same
	// pair count as a stronger connection.
	adj := make(map[string]map[string]int)
	pageMap := make(map[string]PageRef)

	for _, p := range pages {
		pageMap[p.ID] = p
		adj[p.ID] = make(map[string]int)
	}

	for _, e := range edges {
		if _, ok := pageMap[e.Source]; !ok {
			continue
		}
		if _, ok := pageMap[e.Target]; !ok {
			continue
		}
		adj[e.Source][e.Target]++
		adj[e.Target][e.Source]++
	}

	// Every page starts with its own label.
	labels := make(map[string]string)
	pageIDs := make([]string, len(pages))
	for i, p := range pages {
		labels[p.ID] = p.ID
		pageIDs[i] = p.ID
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changeCount := 0

		for _, u := range pageIDs {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			labelCounts := make(map[string]int)
			maxCount := 0
			for v, weight := range neighbors {
				label := labels[v]
				labelCounts[label] += weight
				if labelCounts[label] > maxCount {
					maxCount = labelCounts[label]
				}
			}

			var candidates []string
			for label, count := range labelCounts {
				if count == maxCount {
					candidates = append(candidates, label)
				}
			}

			// Lexicographically largest candidate keeps tie-breaking
			// deterministic across runs.
			sort.Strings(candidates)
			bestLabel := candidates[len(candidates)-1]

			if labels[u] != bestLabel {
				labels[u] = bestLabel
				changeCount++
			}
		}

		if changeCount == 0 {
			break
		}
	}

	grouped := make(map[string][]PageRef)
	for id, label := range labels {
		if ref, ok := pageMap[id]; ok {
			grouped[label] = append(grouped[label], ref)
		}
	}

	var clusters [][]PageRef
	for _, cl := range grouped {
		if len(cl) >= 2 {
			clusters = append(clusters, cl)
		}
	}

	return clusters, nil
}
