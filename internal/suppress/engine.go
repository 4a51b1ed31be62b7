package suppress

import "context"

// maxPassMultiplier bounds the fixed-point loop's safety iteration count
// at maxPassMultiplier * rows, per §7's InternalInvariantViolation.
const maxPassMultiplier = 2

// Suppress runs the full engine over dataset: C2 stamps anonymity, then
// (unless FirstOrderOnly) C6 repeats C3+C4+C5 until a full pass over all
// axes produces no new redactions, then C8 projects the output.
//
// It is synchronous, single-threaded in its fixed-point semantics, and
// deterministic: the same rows, dimension order and config always
// produce byte-identical output. ctx is checked between passes so a
// caller can cancel a run over an unexpectedly large dataset; the engine
// itself has no I/O to cancel.
func Suppress(ctx context.Context, rows []InputRow, cfg Config) (Output, error) {
	const op = "Suppress"
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}

	store := NewStore(cfg.Dimensions, uint(len(rows)))
	for _, r := range rows {
		row, err := newRowFromInput(r, cfg)
		if err != nil {
			return Output{}, err
		}
		if err := store.Add(row); err != nil {
			return Output{}, err
		}
	}

	classify(store.All(), cfg)

	if !cfg.FirstOrderOnly {
		if err := runFixedPoint(ctx, store, cfg, op); err != nil {
			return Output{}, err
		}
	}

	return project(store, cfg), nil
}

// runFixedPoint is C6: it repeats a full pass over every axis C3 emits
// until one full pass makes no changes. Termination is guaranteed
// because the redacted-row count is monotonically non-decreasing and
// bounded by the row count; maxPassMultiplier*rows is a safety backstop
// against a logic bug, not an expected limit.
func runFixedPoint(ctx context.Context, store *Store, cfg Config, op string) error {
	axes := enumerateAxes(cfg)
	limit := maxPassMultiplier * store.Len()
	if limit == 0 {
		limit = maxPassMultiplier
	}

	for pass := 0; ; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if pass > limit {
			return newError(InternalInvariantViolation, op,
				"fixed-point loop exceeded %d passes for %d rows", limit, store.Len())
		}
		changed := false
		for _, axis := range axes {
			if scanAxis(store, axis, cfg) {
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}
