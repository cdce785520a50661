package hooks

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func gitDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestInstallRequiresGitRepo(t *testing.T) {
	m := New(t.TempDir())
	if err := m.Install(false); !errors.Is(err, ErrNotGitRepo) {
		t.Fatalf("expected ErrNotGitRepo, got %v", err)
	}
}

func TestInstallWritesExecutableHooks(t *testing.T) {
	dir := gitDir(t)
	m := New(dir)
	if err := m.Install(false); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"pre-commit", "pre-push"} {
		p := filepath.Join(dir, ".git", "hooks", name)
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
		if st.Mode().Perm()&0o100 == 0 {
			t.Fatalf("%s not executable: %v", name, st.Mode())
		}
	}
	if !m.Installed() {
		t.Fatal("Installed() should report true after install")
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	dir := gitDir(t)
	m := New(dir)
	if err := m.Install(false); err != nil {
		t.Fatal(err)
	}
	if err := m.Install(false); err != nil {
		t.Fatalf("reinstall over our own hooks must succeed, got %v", err)
	}
}

func TestInstallRefusesForeignHookWithoutForce(t *testing.T) {
	dir := gitDir(t)
	hooksDir := filepath.Join(dir, ".git", "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	foreign := "#!/bin/sh\necho custom hook\n"
	if err := os.WriteFile(filepath.Join(hooksDir, "pre-commit"), []byte(foreign), 0o755); err != nil {
		t.Fatal(err)
	}

	m := New(dir)
	if err := m.Install(false); !errors.Is(err, ErrHookExists) {
		t.Fatalf("expected ErrHookExists, got %v", err)
	}
	// foreign hook untouched
	b, err := os.ReadFile(filepath.Join(hooksDir, "pre-commit"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != foreign {
		t.Fatal("foreign hook was modified")
	}

	if err := m.Install(true); err != nil {
		t.Fatalf("force install should overwrite, got %v", err)
	}
}

func TestUninstallRemovesOnlyOurHooks(t *testing.T) {
	dir := gitDir(t)
	m := New(dir)
	if err := m.Install(false); err != nil {
		t.Fatal(err)
	}
	// replace pre-push with a foreign script
	foreign := "#!/bin/sh\necho keep me\n"
	prePush := filepath.Join(dir, ".git", "hooks", "pre-push")
	if err := os.WriteFile(prePush, []byte(foreign), 0o755); err != nil {
		t.Fatal(err)
	}

	n, err := m.Uninstall()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 hook removed, got %d", n)
	}
	if _, err := os.Stat(prePush); err != nil {
		t.Fatal("foreign pre-push hook must survive uninstall")
	}
	if m.Installed() {
		t.Fatal("Installed() should report false after uninstall")
	}
}
