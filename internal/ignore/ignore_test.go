package ignore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreMatch(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, FileName)
	content := "node_modules/\n*.pem\n# comment\n\nsecret.env\n"
	if err := os.WriteFile(ig, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(ig)
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		"node_modules/pkg/index.js": true,
		"certs/key.pem":             true,
		"secret.env":                true,
		"src/app.go":                false,
	}
	for p, want := range cases {
		if got := m.Match(p); got != want {
			t.Fatalf("Match(%q)=%v want %v", p, got, want)
		}
	}
}

func TestIgnoreDoublestar(t *testing.T) {
	dir := t.TempDir()
	ig := filepath.Join(dir, FileName)
	if err := os.WriteFile(ig, []byte("vendor/**/*.json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(ig)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Match("vendor/a/b/data.json") {
		t.Fatal("expected doublestar pattern to match nested file")
	}
	if m.Match("src/data.json") {
		t.Fatal("pattern rooted at vendor/ must not match src/")
	}
}

func TestLoadRootMissingFile(t *testing.T) {
	m, err := LoadRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty matcher, got %d patterns", m.Len())
	}
	if m.Match("anything.txt") {
		t.Fatal("empty matcher must not match")
	}
}
