package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Release lookups hit the GitHub API at most once per interval; the
// outcome is remembered under the user config dir so repeated CLI runs
// stay fast and work offline.

const (
	releasesURL   = "https://api.github.com/repos/enveil/enveil/releases/latest"
	stateFileName = "update.json"
	checkInterval = 24 * time.Hour
)

// checkState remembers the last release lookup.
type checkState struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
}

func stateDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "enveil")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "enveil")
}

func readState() (checkState, bool) {
	var st checkState
	dir := stateDir()
	if dir == "" {
		return st, false
	}
	b, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		return st, false
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, false
	}
	return st, true
}

func writeState(st checkState) {
	dir := stateDir()
	if dir == "" {
		return
	}
	_ = os.MkdirAll(dir, 0755)
	b, _ := json.MarshalIndent(st, "", "  ")
	_ = os.WriteFile(filepath.Join(dir, stateFileName), b, 0644)
}

func fetchLatest() (string, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, releasesURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "enveil-updater")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup: %s", resp.Status)
	}
	var rel struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return "", err
	}
	if rel.TagName != "" {
		return rel.TagName, nil
	}
	return rel.Name, nil
}

// Check reports the newest known release and whether it is ahead of
// current. It is a no-op in CI and when noNetwork is set.
func Check(current string, noNetwork bool) (string, bool, error) {
	if noNetwork || os.Getenv("CI") != "" {
		return "", false, nil
	}
	current = normalize(current)
	st, ok := readState()
	if !ok || st.Version == "" || time.Since(st.CheckedAt) > checkInterval {
		if v, err := fetchLatest(); err == nil {
			st = checkState{CheckedAt: time.Now(), Version: normalize(v)}
			writeState(st)
		}
	}
	if st.Version == "" || current == "" {
		return st.Version, false, nil
	}
	return st.Version, compare(st.Version, current) > 0, nil
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// compare orders dot-separated versions numerically. Missing fields count
// as zero; non-digit suffixes within a field are ignored.
func compare(a, b string) int {
	av, bv := versionFields(a), versionFields(b)
	for i := 0; i < len(av) || i < len(bv); i++ {
		ai, bi := 0, 0
		if i < len(av) {
			ai = av[i]
		}
		if i < len(bv) {
			bi = bv[i]
		}
		switch {
		case ai > bi:
			return 1
		case ai < bi:
			return -1
		}
	}
	return 0
}

func versionFields(v string) []int {
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n := 0
		for j := 0; j < len(p) && p[j] >= '0' && p[j] <= '9'; j++ {
			n = n*10 + int(p[j]-'0')
		}
		out[i] = n
	}
	return out
}
