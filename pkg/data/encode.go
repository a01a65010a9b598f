package data

import "sort"

// EncodeLevels encodes categories as integers. Levels are sorted so the same
// set of observed values always yields the same encoding.
func EncodeLevels(col []string) ([]int, []string) {
	unique := map[string]struct{}{}
	for _, v := range col {
		unique[v] = struct{}{}
	}
	levels := make([]string, 0, len(unique))
	for v := range unique {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	index := make(map[string]int, len(levels))
	for i, v := range levels {
		index[v] = i
	}
	out := make([]int, len(col))
	for i, v := range col {
		out[i] = index[v]
	}
	return out, levels
}
