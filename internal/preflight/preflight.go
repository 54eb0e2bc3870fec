package preflight

import (
	"context"

	"shotclock/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and endpoint checks for the given config.
// The connectivity probe is included when withNetwork is set.
func RunAll(ctx context.Context, cfg *config.Config, withNetwork bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckCreatableDirectory("Screenshot directory", cfg.Paths.ScreenshotDir),
		CheckEndpoint("Ingestion endpoint", cfg.Analysis.IngestURL, cfg.Analysis.Enabled),
		CheckEndpoint("Pairing endpoint", cfg.Pairing.URL, cfg.Analysis.Enabled),
	}
	if withNetwork {
		results = append(results, CheckConnectivity(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
