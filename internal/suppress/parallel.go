package suppress

import (
	"context"
	"sort"

	"github.com/ostrichaudit/suppress/internal/workers"
)

// scanPartitionTask runs one partition's linear scan for one axis as an
// independent workers.Task. Partitions of a single axis are independent
// (§5), so running them concurrently cannot change the final redaction
// set, only the wall-clock time to reach it.
type scanPartitionTask struct {
	store *Store
	axis  Axis
	cfg   Config
	rows  []*Row
}

func (t *scanPartitionTask) ID() string { return tupleKey(projectDims(t.rows[0].Dims, t.axis.Partition), t.axis.Partition) }

func (t *scanPartitionTask) Execute(context.Context) (interface{}, error) {
	return scanOnePartition(t.store, t.axis, t.cfg, t.rows), nil
}

// scanAxisConcurrent is the parallel counterpart to scanAxis, used when
// Config.MaxParallelism > 1. It fans each partition of axis out over a
// bounded worker pool and ORs together the per-partition "changed"
// results in a fixed order, so the observable output is identical to the
// sequential scan.
func scanAxisConcurrent(store *Store, axis Axis, cfg Config) bool {
	partitions := store.Partitions(axis.Partition)
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tasks := make([]workers.Task, 0, len(keys))
	for _, k := range keys {
		tasks = append(tasks, &scanPartitionTask{store: store, axis: axis, cfg: cfg, rows: partitions[k]})
	}

	pool := workers.NewPool(workers.Config{WorkerCount: cfg.MaxParallelism})
	results, err := pool.ExecuteAll(context.Background(), tasks)
	if err != nil {
		// Partition scans never return errors; a failure here indicates a
		// cancelled context, which the synchronous engine never supplies.
		return false
	}

	changed := false
	for _, r := range results {
		if b, _ := r.Value.(bool); b {
			changed = true
		}
	}
	return changed
}
