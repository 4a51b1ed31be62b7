package suppress

const reasonSmallCell = "was a small cell"

// classify implements C2: stamp each row's anonymity, and primary-redact
// every cell below threshold. This establishes the first-order redaction
// set described in §4.2.
func classify(rows []*Row, cfg Config) {
	for _, row := range rows {
		row.IsAnonymous = row.Incidence >= cfg.Threshold
		if row.IsAnonymous {
			continue
		}
		row.IsRedacted = true
		reason := reasonSmallCell
		row.RedactionReason = &reason
		row.PeerGroup = unionDimMaps(nil, []DimMap{projectDims(row.Dims, cfg.Dimensions)})
		row.RedactedPeers = nil
	}
}
