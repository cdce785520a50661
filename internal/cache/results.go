package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/enveil/enveil/internal/types"
)

// ScanResults stores the findings and metadata from a scan
type ScanResults struct {
	Findings  []types.Finding `json:"findings"`
	Timestamp time.Time       `json:"timestamp"`
	Root      string          `json:"root"`
	Count     int             `json:"count"`
}

func resultsPath(root string) string {
	// Store in .git directory or repo root
	gitDir := filepath.Join(root, ".git")
	if st, err := os.Stat(gitDir); err == nil && st.IsDir() {
		return filepath.Join(gitDir, "enveil_last_scan.json")
	}
	return filepath.Join(root, ".enveil_last_scan.json")
}

// SaveResults saves scan results to cache. Matched values and context
// lines are scrubbed first; the file records where findings were, not
// what they were.
func SaveResults(root string, findings []types.Finding) error {
	p := resultsPath(root)
	scrubbed := make([]types.Finding, len(findings))
	for i, f := range findings {
		scrubbed[i] = f
		scrubbed[i].Match = ""
		scrubbed[i].Context = ""
	}
	results := ScanResults{
		Findings:  scrubbed,
		Timestamp: time.Now(),
		Root:      root,
		Count:     len(findings),
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0644)
}

// LoadResults loads the last scan results from cache
func LoadResults(root string) (ScanResults, error) {
	var results ScanResults
	p := resultsPath(root)
	f, err := os.ReadFile(p)
	if err != nil {
		return results, err
	}
	if err := json.Unmarshal(f, &results); err != nil {
		return results, err
	}
	return results, nil
}
