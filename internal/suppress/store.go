package suppress

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// Store is the typed in-memory table C1 describes: rows keyed by the full
// dimension tuple, with a stable insertion order for deterministic scans.
//
// Duplicate-tuple detection is a two-stage check: a Bloom filter sized for
// the expected row count answers "definitely new" in the common case
// without touching the row map, falling back to the authoritative map
// lookup only when the filter reports a possible collision.
type Store struct {
	dims  []string
	rows  map[string]*Row
	order []*Row
	guard *bloom.BloomFilter
}

// NewStore creates an empty Store for the given full dimension set,
// sized for expectedRows.
func NewStore(dims []string, expectedRows uint) *Store {
	if expectedRows == 0 {
		expectedRows = 1024
	}
	return &Store{
		dims:  dims,
		rows:  make(map[string]*Row, expectedRows),
		order: make([]*Row, 0, expectedRows),
		guard: bloom.NewWithEstimates(expectedRows, 0.01),
	}
}

// Add inserts row, returning a MalformedInput error if its dimension
// tuple already exists (primary-key invariant in §3).
func (s *Store) Add(row *Row) error {
	const op = "Store.Add"
	key := tupleKey(row.Dims, s.dims)
	if s.guard.TestString(key) {
		if _, exists := s.rows[key]; exists {
			return newError(MalformedInput, op, "duplicate dimension tuple: %v", row.Dims)
		}
	}
	s.rows[key] = row
	s.order = append(s.order, row)
	s.guard.AddString(key)
	return nil
}

// Get looks a row up by its full dimension tuple.
func (s *Store) Get(m DimMap) (*Row, bool) {
	r, ok := s.rows[tupleKey(m, s.dims)]
	return r, ok
}

// All returns rows in insertion order. Callers must not mutate the slice.
func (s *Store) All() []*Row { return s.order }

// Len returns the row count.
func (s *Store) Len() int { return len(s.order) }

// UpdateFlags applies the redaction-merger semantics (C5) to row: it is
// marked redacted, peer_group/redacted_peers are unioned in, and the
// reason is set only if this is the first writer. Returns whether row's
// observable state changed, which the fixed-point driver uses to detect
// convergence.
func (s *Store) UpdateFlags(row *Row, reason string, peerAdditions, redactedPeerAdditions []DimMap) bool {
	changed := false
	if !row.IsRedacted {
		row.IsRedacted = true
		changed = true
	}
	if merged := unionDimMaps(row.PeerGroup, peerAdditions); len(merged) != len(row.PeerGroup) {
		row.PeerGroup = merged
		changed = true
	} else {
		row.PeerGroup = merged
	}
	if merged := unionDimMaps(row.RedactedPeers, redactedPeerAdditions); len(merged) != len(row.RedactedPeers) {
		row.RedactedPeers = merged
		changed = true
	} else {
		row.RedactedPeers = merged
	}
	if row.RedactionReason == nil {
		r := reason
		row.RedactionReason = &r
		changed = true
	}
	return changed
}

// Partitions groups rows by their values for partitionDims, preserving
// each partition's insertion order (the scan engine is responsible for
// sorting within a partition).
func (s *Store) Partitions(partitionDims []string) map[string][]*Row {
	out := make(map[string][]*Row)
	for _, row := range s.order {
		key := tupleKey(projectDims(row.Dims, partitionDims), partitionDims)
		out[key] = append(out[key], row)
	}
	return out
}
