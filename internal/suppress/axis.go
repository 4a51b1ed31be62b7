package suppress

import "sort"

// Axis is a (partition dims, scan dim) pair along which subtraction leaks
// are checked: rows are grouped by Partition, then scanned in order along
// Scan within each group (§3).
type Axis struct {
	Partition []string
	Scan      string
}

// enumerateAxes produces C3's ordered sequence of axes: every non-empty
// subset P of D, paired with every summable dimension not in P, ordered
// by |P| ascending then lexicographically.
//
// Checking coarser partitions first exposes leaks that finer partitions
// would miss in one pass, reducing the number of fixed-point iterations.
func enumerateAxes(cfg Config) []Axis {
	dims := append([]string(nil), cfg.Dimensions...)
	sort.Strings(dims)
	summable := cfg.summableDimensions()

	var subsets [][]string
	for mask := 1; mask < (1 << len(dims)); mask++ {
		var p []string
		for i, d := range dims {
			if mask&(1<<i) != 0 {
				p = append(p, d)
			}
		}
		subsets = append(subsets, p)
	}
	sort.Slice(subsets, func(i, j int) bool {
		if len(subsets[i]) != len(subsets[j]) {
			return len(subsets[i]) < len(subsets[j])
		}
		for k := range subsets[i] {
			if subsets[i][k] != subsets[j][k] {
				return subsets[i][k] < subsets[j][k]
			}
		}
		return false
	})

	var axes []Axis
	for _, p := range subsets {
		inP := make(map[string]bool, len(p))
		for _, d := range p {
			inP[d] = true
		}
		for _, s := range summable {
			if !inP[s] {
				axes = append(axes, Axis{Partition: p, Scan: s})
			}
		}
	}
	return axes
}
