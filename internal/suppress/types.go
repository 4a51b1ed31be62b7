package suppress

import (
	"encoding/json"
	"fmt"
)

// InputRow is one record of the raw aggregate: a mapping from column
// name to value. It must contain Config.IncidenceColumn; a name in
// Config.Dimensions that is missing or nil is read as the null category.
// Other columns are ignored by the engine.
type InputRow map[string]interface{}

func newRowFromInput(r InputRow, cfg Config) (*Row, error) {
	const op = "newRowFromInput"
	dims := make(DimMap, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		v, ok := r[d]
		if !ok || v == nil {
			dims[d] = nil
			continue
		}
		s := fmt.Sprint(v)
		dims[d] = &s
	}

	incidence, err := toIncidence(r[cfg.IncidenceColumn])
	if err != nil {
		return nil, newError(MalformedInput, op, "column %q: %v", cfg.IncidenceColumn, err)
	}

	return &Row{Dims: dims, Incidence: incidence}, nil
}

func toIncidence(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return checkNonNegative(int64(n))
	case int32:
		return checkNonNegative(int64(n))
	case int64:
		return checkNonNegative(n)
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("incidence %v is not an integer", n)
		}
		return checkNonNegative(int64(n))
	case float32:
		return toIncidence(float64(n))
	default:
		return 0, fmt.Errorf("incidence value %v has unsupported type %T", v, v)
	}
}

func checkNonNegative(n int64) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("incidence %d is negative", n)
	}
	return n, nil
}

// OutputRow is one row of the projected, redacted dataset (§6). Its wire
// form flattens Dims alongside the fixed fields rather than nesting them,
// so a published row reads as one dimension-keyed record.
type OutputRow struct {
	Dims DimMap

	// Incidence holds the numeric count for a non-redacted row, or the
	// configured redaction sentinel string for a redacted one.
	Incidence interface{}

	IsRedacted      bool
	RedactionReason *string
	PeerGroup       []DimMap
	RedactedPeers   []DimMap
}

// MarshalJSON flattens Dims into the top-level object alongside the
// fixed fields, matching the published row shape from §6.
func (r OutputRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Dims)+5)
	for k, v := range r.Dims {
		if v == nil {
			m[k] = nil
		} else {
			m[k] = *v
		}
	}
	m["incidence"] = r.Incidence
	m["is_redacted"] = r.IsRedacted
	m["redaction_reason"] = r.RedactionReason
	m["peer_group"] = r.PeerGroup
	m["redacted_peers"] = r.RedactedPeers
	return json.Marshal(m)
}

// Stats summarizes one suppression run (§6, §8).
type Stats struct {
	TotalCells          int     `json:"total_cells"`
	RedactedCells       int     `json:"redacted_cells"`
	NonAnonymousCells   int     `json:"non_anonymous_cells"`
	SuppressionRate     float64 `json:"suppression_rate"`
	ThresholdUsed       int64   `json:"threshold_used"`
	DimensionSuppressed string  `json:"dimension_suppressed"`
}

// Output is the full result of a Suppress call: the projected rows plus
// summary statistics, matching the collaborator wire contract
// `{data, stats, success}` from §6.
type Output struct {
	Rows    []OutputRow `json:"data"`
	Stats   Stats       `json:"stats"`
	Success bool        `json:"success"`
}
