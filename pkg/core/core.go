package core

import (
	"github.com/enveil/enveil/internal/engine"
	"github.com/enveil/enveil/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
// We can replace these with decoupled structs later without breaking callers.
type Config = engine.Config
type Finding = types.Finding
type Result = engine.Result

// Scan is the stable entrypoint for other programs.
func Scan(cfg Config) ([]Finding, error) {
	return engine.Scan(cfg)
}

// ScanWithStats runs a scan and returns findings together with timing
// and file-count statistics.
func ScanWithStats(cfg Config) (Result, error) {
	return engine.ScanWithStats(cfg)
}

// RuleIDs returns the list of configured detection rule IDs.
// This is exposed for convenience to avoid importing internals directly.
func RuleIDs() []string { return engine.RuleIDs() }
