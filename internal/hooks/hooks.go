// Package hooks installs and removes the git pre-commit and pre-push
// hooks that gate commits on a secret scan. Hooks are plain shell scripts
// carrying a marker line so uninstall never touches a hook we did not
// write.
package hooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const marker = "# enveil hook"

var ErrNotGitRepo = errors.New("not a git repository: run 'git init' first")

// ErrHookExists is returned when a foreign hook occupies the slot and
// force was not given.
var ErrHookExists = errors.New("hook already exists; use --force to overwrite")

const preCommitScript = `#!/bin/sh
` + marker + `
# Scans staged files for secrets before commit. Bypass with --no-verify.

if ! command -v enveil >/dev/null 2>&1; then
    echo "enveil not found on PATH; skipping secret scan" >&2
    exit 0
fi

exec enveil scan --staged --fail-on medium
`

const prePushScript = `#!/bin/sh
` + marker + `
# Scans the working tree for secrets before push. Bypass with --no-verify.

if ! command -v enveil >/dev/null 2>&1; then
    echo "enveil not found on PATH; skipping secret scan" >&2
    exit 0
fi

exec enveil scan --fail-on high
`

var hookScripts = map[string]string{
	"pre-commit": preCommitScript,
	"pre-push":   prePushScript,
}

// Manager installs hooks for one repository.
type Manager struct {
	root     string
	hooksDir string
}

func New(root string) *Manager {
	return &Manager{
		root:     root,
		hooksDir: filepath.Join(root, ".git", "hooks"),
	}
}

// Install writes the pre-commit and pre-push hooks. Installing over an
// existing enveil hook is a no-op; installing over a foreign hook fails
// unless force is set.
func (m *Manager) Install(force bool) error {
	if _, err := os.Stat(filepath.Join(m.root, ".git")); err != nil {
		return ErrNotGitRepo
	}
	if err := os.MkdirAll(m.hooksDir, 0o755); err != nil {
		return fmt.Errorf("create hooks dir: %w", err)
	}
	for name, script := range hookScripts {
		if err := m.installOne(name, script, force); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) installOne(name, script string, force bool) error {
	path := filepath.Join(m.hooksDir, name)
	if b, err := os.ReadFile(path); err == nil && !force {
		if strings.Contains(string(b), marker) {
			return nil // ours already
		}
		return fmt.Errorf("%s: %w", name, ErrHookExists)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("write %s hook: %w", name, err)
	}
	return nil
}

// Uninstall removes enveil-owned hooks and reports how many were removed.
// Foreign hooks are left alone.
func (m *Manager) Uninstall() (int, error) {
	removed := 0
	for name := range hookScripts {
		path := filepath.Join(m.hooksDir, name)
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if !strings.Contains(string(b), marker) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s hook: %w", name, err)
		}
		removed++
	}
	return removed, nil
}

// Status reports which of our hooks are currently installed.
func (m *Manager) Status() map[string]bool {
	out := make(map[string]bool, len(hookScripts))
	for name := range hookScripts {
		b, err := os.ReadFile(filepath.Join(m.hooksDir, name))
		out[name] = err == nil && strings.Contains(string(b), marker)
	}
	return out
}

// Installed reports whether any enveil hook is present.
func (m *Manager) Installed() bool {
	for _, ok := range m.Status() {
		if ok {
			return true
		}
	}
	return false
}
