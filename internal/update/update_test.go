package update

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"v1.2.3":  "1.2.3",
		"1.2.3":   "1.2.3",
		" v0.4 ":  "0.4",
		"":        "",
		"v":       "",
		"2.0.0-r": "2.0.0-r",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.4", "1.2.3", 1},
		{"1.2.3", "1.2.4", -1},
		{"2.0", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
		{"1.2", "1.2.0", 0},
		{"0.4.1", "0.4", 1},
	}
	for _, c := range cases {
		if got := compare(c.a, c.b); got != c.want {
			t.Errorf("compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestCheckSkipsInCI(t *testing.T) {
	t.Setenv("CI", "true")
	latest, newer, err := Check("0.1.0", false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if latest != "" || newer {
		t.Errorf("expected no-op in CI, got latest=%q newer=%v", latest, newer)
	}
}

func TestCheckUsesFreshState(t *testing.T) {
	t.Setenv("CI", "")
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	writeState(checkState{CheckedAt: time.Now(), Version: "9.9.9"})
	if _, err := os.Stat(filepath.Join(dir, "enveil", stateFileName)); err != nil {
		t.Fatalf("state not written: %v", err)
	}
	latest, newer, err := Check("0.1.0", false)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if latest != "9.9.9" {
		t.Errorf("latest = %q, want 9.9.9", latest)
	}
	if !newer {
		t.Error("expected newer = true")
	}
}

func TestCheckNoNetwork(t *testing.T) {
	t.Setenv("CI", "")
	latest, newer, err := Check("0.1.0", true)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if latest != "" || newer {
		t.Errorf("expected no-op with noNetwork, got latest=%q newer=%v", latest, newer)
	}
}
