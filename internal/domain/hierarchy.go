package domain

// Hierarchy walks operate on a flat snapshot of all clients. Parent links
// should form a tree, but the data may be corrupted, so every walk tracks
// visited ids and fails with a ConsistencyError instead of looping forever.

// Descendants returns every client reachable below clientID by following
// parent links, depth first. The client itself is not included.
func Descendants(clients []*Client, clientID string) ([]*Client, error) {
	visited := map[string]bool{clientID: true}
	return descend(clients, clientID, visited)
}

func descend(clients []*Client, parentID string, visited map[string]bool) ([]*Client, error) {
	var result []*Client
	for _, c := range clients {
		if c.ParentID == nil || *c.ParentID != parentID {
			continue
		}
		if visited[c.ID] {
			return nil, &ConsistencyError{Message: "client hierarchy contains a cycle at " + c.ID}
		}
		visited[c.ID] = true
		result = append(result, c)

		children, err := descend(clients, c.ID, visited)
		if err != nil {
			return nil, err
		}
		result = append(result, children...)
	}
	return result, nil
}

// Subtree returns the client followed by all of its descendants, or nil if
// the client is not in the set.
func Subtree(clients []*Client, clientID string) ([]*Client, error) {
	root := findClient(clients, clientID)
	if root == nil {
		return nil, nil
	}
	children, err := Descendants(clients, clientID)
	if err != nil {
		return nil, err
	}
	return append([]*Client{root}, children...), nil
}

// HierarchyPath returns the chain from the client itself up to its root
// ancestor, most specific first. The path stops silently at the first missing
// parent; a missing client yields an empty path.
func HierarchyPath(clients []*Client, clientID string) ([]*Client, error) {
	var path []*Client
	visited := make(map[string]bool)

	current := findClient(clients, clientID)
	for current != nil {
		if visited[current.ID] {
			return nil, &ConsistencyError{Message: "client hierarchy contains a cycle at " + current.ID}
		}
		visited[current.ID] = true
		path = append(path, current)

		if current.ParentID == nil {
			break
		}
		current = findClient(clients, *current.ParentID)
	}
	return path, nil
}

// ResolveOverride finds the billing rate override in effect for a client,
// walking the hierarchy from the client itself up to the root. The first
// override found for the base rate wins, so a client's own override always
// masks an ancestor's. Returns nil when no client in the path has one; the
// caller falls back to the base rate.
func ResolveOverride(clients []*Client, clientID, baseRateID string) (*RateOverride, error) {
	if clientID == "" {
		return nil, nil
	}
	path, err := HierarchyPath(clients, clientID)
	if err != nil {
		return nil, err
	}
	for _, c := range path {
		if o := c.OverrideFor(baseRateID); o != nil {
			return o, nil
		}
	}
	return nil, nil
}

func findClient(clients []*Client, id string) *Client {
	for _, c := range clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}
