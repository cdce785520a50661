package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/enveil/enveil/internal/ignore"
)

func TestCountTargets_InlineIgnoreAndMaxBytes(t *testing.T) {
	dir := t.TempDir()
	// files
	small := filepath.Join(dir, "a.txt")
	big := filepath.Join(dir, "big.bin")
	ignFile := filepath.Join(dir, ignore.FileName)
	if err := os.WriteFile(small, []byte("ok"), 0644); err != nil {
		t.Fatal(err)
	}
	// big file over threshold
	bigData := make([]byte, 2<<20)
	if err := os.WriteFile(big, bigData, 0644); err != nil {
		t.Fatal(err)
	}
	ignored := filepath.Join(dir, "ignored.txt")
	if err := os.WriteFile(ignored, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ignFile, []byte("ignored.txt\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{Root: dir, MaxBytes: 1 << 20}
	n, err := CountTargets(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// a.txt and the ignore file itself count; big.bin is over MaxBytes and
	// ignored.txt is excluded by the ignore file. Expect 2.
	if n != 2 {
		t.Fatalf("expected 2 targets, got %d", n)
	}
}

func TestWalk_SkipsBinaryInlineIgnoreAndDefaultExcludes(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel string, data []byte) {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("keep.txt", []byte("hello"))
	mustWrite("skip.bin", []byte{0x00, 0x01, 0x02})
	mustWrite("directive.txt", []byte("// enveil:ignore-file\ntoken"))
	mustWrite("node_modules/pkg/index.js", []byte("var x = 1"))

	cfg := Config{Root: dir, MaxBytes: 1 << 20, DefaultExcludes: true}
	ign, err := ignore.LoadRoot(dir)
	if err != nil {
		t.Fatal(err)
	}
	var seen []string
	err = Walk(context.Background(), cfg, ign, nil, func(p string, data []byte) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "keep.txt" {
		t.Fatalf("expected only keep.txt, got %v", seen)
	}
}

func TestWalk_GlobFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.go", "notes.md", "app.py"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := Config{Root: dir, MaxBytes: 1 << 20, IncludeGlobs: "*.go,*.py", ExcludeGlobs: "app.py"}
	ign, _ := ignore.LoadRoot(dir)
	var seen []string
	if err := Walk(context.Background(), cfg, ign, nil, func(p string, _ []byte) {
		seen = append(seen, p)
	}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "main.go" {
		t.Fatalf("expected only main.go, got %v", seen)
	}
}

func TestIsSensitivePath(t *testing.T) {
	cases := map[string]bool{
		".env":               true,
		"deploy/.env.prod":   true,
		".env.example":       false,
		"certs/server.pem":   true,
		"home/.ssh/id_rsa":   true,
		".aws/credentials":   true,
		"src/main.go":        false,
		"docs/readme.md":     false,
		"keystore/app.jks":   true,
		"secrets.yaml":       true,
		"config/settings.py": false,
	}
	for p, want := range cases {
		if got := isSensitivePath(p); got != want {
			t.Fatalf("isSensitivePath(%q)=%v want %v", p, got, want)
		}
	}
}
