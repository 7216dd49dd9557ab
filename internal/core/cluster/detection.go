package cluster

// PageRef is the slice of page identity clustering works on.
type PageRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Edge is one link between two pages, by page ID.
type Edge struct {
	Source string
	Target string
}

// Detector groups pages into clusters of related pages based on the
// link edges among them.
type Detector interface {
	Detect(pages []PageRef, edges []Edge) ([][]PageRef, error)
}

// ConnectedComponents clusters pages by simple undirected connectivity:
// every page reachable from another over any chain of links lands in
// the same cluster. Singletons are not clusters and are dropped.
type ConnectedComponents struct{}

func (d *ConnectedComponents) Detect(pages []PageRef, edges []Edge) ([][]PageRef, error) {
	pageMap := make(map[string]PageRef)
	adj := make(map[string][]string)

	for _, p := range pages {
		pageMap[p.ID] = p
	}

	for _, e := range edges {
		if _, ok := pageMap[e.Source]; !ok {
			continue
		}
		if _, ok := pageMap[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	visited := make(map[string]bool)
	var clusters [][]PageRef

	for _, p := range pages {
		if visited[p.ID] {
			continue
		}
		var componentIDs []string
		d.dfs(p.ID, adj, visited, &componentIDs)

		if len(componentIDs) >= 2 {
			var cl []PageRef
			for _, id := range componentIDs {
				if ref, exists := pageMap[id]; exists {
					cl = append(cl, ref)
				}
			}
			clusters = append(clusters, cl)
		}
	}

	return clusters, nil
}

func (d *ConnectedComponents) dfs(u string, adj map[string][]string, visited map[string]bool, component *[]string) {
	visited[u] = true
	*component = append(*component, u)
	for _, v := range adj[u] {
		if !visited[v] {
			d.dfs(v, adj, visited, component)
		}
	}
}
