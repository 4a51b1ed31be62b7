package suppress

import "sort"

// project implements C8: emit rows in stable dimension order, replace
// redacted incidence with the sentinel, and compute run statistics.
func project(store *Store, cfg Config) Output {
	rows := append([]*Row(nil), store.All()...)
	dims := append([]string(nil), cfg.Dimensions...)
	sort.Strings(dims)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, d := range dims {
			vi, vj := dimValueString(rows[i].Dims[d]), dimValueString(rows[j].Dims[d])
			if vi != vj {
				return vi < vj
			}
		}
		return false
	})

	out := make([]OutputRow, 0, len(rows))
	redacted, nonAnonymous := 0, 0
	for _, r := range rows {
		row := OutputRow{
			Dims:            r.Dims,
			IsRedacted:      r.IsRedacted,
			RedactionReason: r.RedactionReason,
			PeerGroup:       r.PeerGroup,
			RedactedPeers:   r.RedactedPeers,
		}
		if r.IsRedacted {
			row.Incidence = cfg.RedactionSentinel
			redacted++
		} else {
			row.Incidence = r.Incidence
		}
		if !r.IsAnonymous {
			nonAnonymous++
		}
		out = append(out, row)
	}

	total := len(rows)
	rate := 0.0
	if total > 0 {
		rate = float64(redacted) / float64(total)
	}

	return Output{
		Rows: out,
		Stats: Stats{
			TotalCells:          total,
			RedactedCells:       redacted,
			NonAnonymousCells:   nonAnonymous,
			SuppressionRate:     rate,
			ThresholdUsed:       cfg.Threshold,
			DimensionSuppressed: cfg.IncidenceColumn,
		},
		Success: true,
	}
}
