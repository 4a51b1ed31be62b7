package suppress

import (
	"encoding/json"
	"sort"
)

// scanContext is the small per-partition window state C4/§9 describe:
// a previous-row snapshot, a running sum, and the partition's redacted
// count, reused across the linear scan instead of allocated per row.
type scanContext struct {
	prev        *Row
	runSum      int64
	maskedCount int
	nonSummable []string
	threshold   int64
}

// scanAxis runs C4 for a single axis over store, applying C5 merges live
// as rows are redacted (§9: a single linear scan, not a declarative
// query). It returns whether any row's state changed, which the
// fixed-point driver (C6) uses to detect convergence.
//
// Partitions of a single axis are independent (§5); scanAxisConcurrent
// exercises that when Config.MaxParallelism > 1.
func scanAxis(store *Store, axis Axis, cfg Config) bool {
	if cfg.MaxParallelism > 1 {
		return scanAxisConcurrent(store, axis, cfg)
	}
	partitions := store.Partitions(axis.Partition)

	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changed := false
	for _, k := range keys {
		if scanOnePartition(store, axis, cfg, partitions[k]) {
			changed = true
		}
	}
	return changed
}

// scanOnePartition runs the linear scan for a single partition's rows.
func scanOnePartition(store *Store, axis Axis, cfg Config, rows []*Row) bool {
	sortPartition(rows, orderColumns(axis, cfg))

	changed := false
	ctx := &scanContext{
		maskedCount: countRedacted(rows),
		nonSummable: cfg.nonSummableSorted(),
		threshold:   cfg.Threshold,
	}
	for _, row := range rows {
		ctx.runSum += row.Incidence
		if !row.IsRedacted && ctx.prev != nil && shouldRedactAlongAxis(row, ctx) {
			reason := buildReason(ctx)
			peerGroup := []DimMap{projectDims(row.Dims, append(append([]string(nil), axis.Partition...), axis.Scan))}
			previousPeerGroup := ctx.prev.PeerGroup
			redactedPeers := []DimMap{{axis.Scan: row.Dims[axis.Scan]}}
			previousRedactedPeers := ctx.prev.RedactedPeers
			if applyRedaction(store, row, reason, append(peerGroup, previousPeerGroup...), append(redactedPeers, previousRedactedPeers...)) {
				changed = true
			}
		}
		ctx.prev = row
	}
	return changed
}

// orderColumns is the within-partition ordering: scan dim first, then the
// non-summable dims (so "previous" is well-defined when N-dims can
// differ), then the full dimension tuple for absolute stability.
func orderColumns(axis Axis, cfg Config) []string {
	seen := map[string]bool{axis.Scan: true}
	cols := []string{axis.Scan}
	for _, d := range cfg.nonSummableSorted() {
		if !seen[d] {
			cols = append(cols, d)
			seen[d] = true
		}
	}
	dims := append([]string(nil), cfg.Dimensions...)
	sort.Strings(dims)
	for _, d := range dims {
		if !seen[d] {
			cols = append(cols, d)
			seen[d] = true
		}
	}
	return cols
}

func sortPartition(rows []*Row, orderDims []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, d := range orderDims {
			vi, vj := dimValueString(rows[i].Dims[d]), dimValueString(rows[j].Dims[d])
			if vi != vj {
				return vi < vj
			}
		}
		return false
	})
}

func countRedacted(rows []*Row) int {
	n := 0
	for _, r := range rows {
		if r.IsRedacted {
			n++
		}
	}
	return n
}

// shouldRedactAlongAxis implements the §4.4 trigger predicate. row is
// known not yet redacted and to have a predecessor in the window.
func shouldRedactAlongAxis(row *Row, ctx *scanContext) bool {
	if !ctx.prev.IsRedacted {
		return false
	}
	for _, d := range ctx.nonSummable {
		if dimValueString(row.Dims[d]) != dimValueString(ctx.prev.Dims[d]) {
			return false
		}
	}
	residual := ctx.runSum - ctx.prev.Incidence
	if ctx.maskedCount < 2 {
		return true
	}
	if residual < ctx.threshold {
		return true
	}
	return false
}

// buildReason composes the redaction_reason string per §4.4's bit-exact
// wording contract.
func buildReason(ctx *scanContext) string {
	prev := ctx.prev
	if !prev.IsAnonymous {
		prevJSON, _ := json.Marshal(prev.Dims)
		return string(prevJSON) + " was a small cell"
	}
	inherited := reasonSmallCell
	if prev.RedactionReason != nil {
		inherited = *prev.RedactionReason
	}
	if ctx.maskedCount < 2 {
		return inherited
	}
	return inherited + " and the delta would construct a small population."
}
