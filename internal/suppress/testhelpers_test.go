package suppress

func strp(s string) *string { return &s }

func libraryDonorsRows() []InputRow {
	return []InputRow{
		{"age": "35", "sex": "M", "library_friend": "Yes", "zip_code": "00000", "count": 3},
		{"age": "25", "sex": "F", "library_friend": "No", "zip_code": "00000", "count": 20},
		{"age": "15", "sex": "M", "library_friend": "Yes", "zip_code": "00001", "count": 12},
		{"age": "55", "sex": "F", "library_friend": "No", "zip_code": "00001", "count": 13},
	}
}

func libraryDonorsConfig() Config {
	return Config{
		Dimensions:      []string{"age", "sex", "library_friend", "zip_code"},
		Threshold:       11,
		IncidenceColumn: "count",
	}
}

func rowKey(dims DimMap, names []string) string {
	return tupleKey(dims, names)
}

func findRow(out Output, dims map[string]string) (OutputRow, bool) {
	for _, r := range out.Rows {
		match := true
		for k, v := range dims {
			if dimValueString(r.Dims[k]) != v {
				match = false
				break
			}
		}
		if match && len(dims) == len(r.Dims) {
			return r, true
		}
	}
	return OutputRow{}, false
}
