package engine

// ============================================================================
// REGIONS — Tree Flattening and Selected Area Resolution
// ============================================================================

// FlattenedOptions maps an option id to its node. Children are kept on each
// node so descendants can be walked through the lookup.
type FlattenedOptions map[string]NestedFilterOption

// FlattenOptions visits every node of a forest depth-first and indexes it by
// id. Ids are expected to be unique; when they are not, the node visited last
// wins.
func FlattenOptions(roots []NestedFilterOption) FlattenedOptions {
	flat := make(FlattenedOptions)
	flattenInto(flat, roots)
	return flat
}

func flattenInto(flat FlattenedOptions, nodes []NestedFilterOption) {
	for _, n := range nodes {
		flat[n.ID] = n
		if len(n.Children) > 0 {
			flattenInto(flat, n.Children)
		}
	}
}

// Labels returns id → label for every node.
func (f FlattenedOptions) Labels() map[string]string {
	labels := make(map[string]string, len(f))
	for id, n := range f {
		labels[id] = n.Label
	}
	return labels
}

// Descendants returns the ids of every node below id, at any depth.
// The id itself is not included.
func (f FlattenedOptions) Descendants(id string) []string {
	node, ok := f[id]
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{id: true}
	var walk func(children []NestedFilterOption)
	walk = func(children []NestedFilterOption) {
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c.ID)
			// Prefer the indexed node: with duplicate ids it is the one that won.
			if indexed, ok := f[c.ID]; ok {
				walk(indexed.Children)
			} else {
				walk(c.Children)
			}
		}
	}
	walk(node.Children)
	return out
}

// AreaSet is the set of area ids that pass the region filter.
// A nil set means no region filter is active and every area passes.
type AreaSet map[string]struct{}

// Contains reports whether areaID passes the region filter.
func (s AreaSet) Contains(areaID string) bool {
	if s == nil {
		return true
	}
	_, ok := s[areaID]
	return ok
}

// IsAll reports whether the set lets every area through.
func (s AreaSet) IsAll() bool {
	return s == nil
}

// ResolveSelectedAreaIDs expands the selected region ids into the closure of
// those ids and all their descendants. An empty selection returns nil. Ids
// missing from flat contribute nothing, so a selection made only of unknown
// ids yields an empty set that excludes every area.
func ResolveSelectedAreaIDs(selected []string, flat FlattenedOptions) AreaSet {
	if len(selected) == 0 {
		return nil
	}
	set := make(AreaSet)
	for _, id := range selected {
		if _, ok := flat[id]; !ok {
			continue
		}
		set[id] = struct{}{}
		for _, d := range flat.Descendants(id) {
			set[d] = struct{}{}
		}
	}
	return set
}
