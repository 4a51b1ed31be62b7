package suppress

import "sort"

// DefaultRedactionSentinel is substituted into the output in place of a
// redacted row's incidence value when no override is configured.
const DefaultRedactionSentinel = "Redacted"

// Config holds the options recognized by the suppression engine (C7).
type Config struct {
	// Dimensions is the ordered full dimension set D. All other input
	// columns are passthrough and are not touched by the engine.
	Dimensions []string `json:"dimensions"`

	// Threshold is the minimum incidence for a cell to be anonymous.
	Threshold int64 `json:"threshold"`

	// FirstOrderOnly skips latent-revelation propagation (§4.2) when true.
	FirstOrderOnly bool `json:"first_order_only"`

	// NonSummableDimensions names dimensions N whose totals are not
	// published; leaks through them are not considered when scanning.
	NonSummableDimensions []string `json:"non_summable_dimensions"`

	// IncidenceColumn names the input column holding the count.
	IncidenceColumn string `json:"incidence_column"`

	// RedactionSentinel is substituted for incidence in redacted output
	// rows. Defaults to DefaultRedactionSentinel.
	RedactionSentinel string `json:"redaction_sentinel"`

	// MaxParallelism bounds how many partitions of a single axis may be
	// scanned concurrently. 0 or 1 means fully sequential, which is the
	// deterministic baseline the spec's byte-stability guarantee assumes.
	MaxParallelism int `json:"max_parallelism"`
}

// withDefaults returns a copy of c with zero-value fields defaulted.
func (c Config) withDefaults() Config {
	if c.RedactionSentinel == "" {
		c.RedactionSentinel = DefaultRedactionSentinel
	}
	if c.MaxParallelism <= 0 {
		c.MaxParallelism = 1
	}
	return c
}

// summableDimensions returns D \ N, sorted, per §4.3.
func (c Config) summableDimensions() []string {
	nonSummable := make(map[string]bool, len(c.NonSummableDimensions))
	for _, d := range c.NonSummableDimensions {
		nonSummable[d] = true
	}
	summable := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		if !nonSummable[d] {
			summable = append(summable, d)
		}
	}
	sort.Strings(summable)
	return summable
}

func (c Config) nonSummableSorted() []string {
	out := append([]string(nil), c.NonSummableDimensions...)
	sort.Strings(out)
	return out
}

// Validate checks the InvalidConfig conditions from §7.
func (c Config) Validate() error {
	const op = "Config.Validate"
	if c.Threshold <= 0 {
		return newError(InvalidConfig, op, "threshold must be >= 1, got %d", c.Threshold)
	}
	if c.IncidenceColumn == "" {
		return newError(InvalidConfig, op, "incidence column must be set")
	}
	if len(c.Dimensions) == 0 {
		return newError(InvalidConfig, op, "dimensions list must not be empty")
	}
	dimSet := make(map[string]bool, len(c.Dimensions))
	for _, d := range c.Dimensions {
		dimSet[d] = true
	}
	for _, n := range c.NonSummableDimensions {
		if !dimSet[n] {
			return newError(InvalidConfig, op, "non-summable dimension %q is not in dimensions", n)
		}
	}
	return nil
}
