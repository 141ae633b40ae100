package container

// dependencyGraph holds the declared dependency edges between canonical keys.
type dependencyGraph struct {
	nodes map[string][]string
	order []string // registration order
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{nodes: make(map[string][]string)}
}

func (g *dependencyGraph) addNode(key string, deps []string) {
	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = deps
}

// topologicalSort returns keys with dependencies first. Keys without
// dependencies keep their registration order.
func (g *dependencyGraph) topologicalSort() ([]string, error) {
	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	for _, key := range g.order {
		if err := g.visit(key, visited, nil, &result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (g *dependencyGraph) visit(key string, visited map[string]bool, path []string, result *[]string) error {
	if visited[key] {
		return nil
	}
	for i, k := range path {
		if k == key {
			cycle := append(append([]string(nil), path[i:]...), key)
			return newServiceError("compile", key, ErrCircularReference).withChain(cycle)
		}
	}
	deps, ok := g.nodes[key]
	if !ok {
		// synthetic or external keys have no outgoing edges
		return nil
	}
	path = append(path, key)
	for _, dep := range deps {
		if err := g.visit(dep, visited, path, result); err != nil {
			return err
		}
	}
	visited[key] = true
	*result = append(*result, key)
	return nil
}
