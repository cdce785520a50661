package git

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func containsLine(s, line string) bool {
	for _, l := range strings.Split(s, "\n") {
		if l == line {
			return true
		}
	}
	return false
}

func initRepo(t *testing.T) (string, *gogit.Repository, *gogit.Worktree) {
	t.Helper()
	dir := t.TempDir()
	r, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	wt, err := r.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	return dir, r, wt
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func commit(t *testing.T, wt *gogit.Worktree, msg string) {
	t.Helper()
	_, err := wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestStagedOnUnbornBranch(t *testing.T) {
	dir, _, wt := initRepo(t)
	write(t, dir, "creds.txt", "token=abc\n")
	if _, err := wt.Add("creds.txt"); err != nil {
		t.Fatal(err)
	}

	paths, data, err := Staged(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "creds.txt" {
		t.Fatalf("unexpected staged paths: %v", paths)
	}
	if string(data[0]) != "token=abc\n" {
		t.Fatalf("unexpected staged content: %q", data[0])
	}
}

func TestStagedSkipsUnchangedFiles(t *testing.T) {
	dir, _, wt := initRepo(t)
	write(t, dir, "a.txt", "one\n")
	write(t, dir, "b.txt", "two\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "base")

	write(t, dir, "b.txt", "two changed\n")
	if _, err := wt.Add("b.txt"); err != nil {
		t.Fatal(err)
	}

	paths, data, err := Staged(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "b.txt" {
		t.Fatalf("expected only b.txt staged, got %v", paths)
	}
	if string(data[0]) != "two changed\n" {
		t.Fatalf("unexpected content: %q", data[0])
	}
}

func TestLastNCommits(t *testing.T) {
	dir, _, wt := initRepo(t)
	write(t, dir, "f.txt", "v1\n")
	if _, err := wt.Add("f.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "first")

	write(t, dir, "f.txt", "v2\n")
	write(t, dir, "g.txt", "new\n")
	if _, err := wt.Add("."); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "second")

	entries, err := LastNCommits(dir, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// newest first
	if string(entries[0].Files["f.txt"]) != "v2\n" {
		t.Fatalf("unexpected newest f.txt: %q", entries[0].Files["f.txt"])
	}
	if string(entries[0].Files["g.txt"]) != "new\n" {
		t.Fatalf("unexpected newest g.txt: %q", entries[0].Files["g.txt"])
	}
	// root commit reports its full tree
	if string(entries[1].Files["f.txt"]) != "v1\n" {
		t.Fatalf("unexpected root f.txt: %q", entries[1].Files["f.txt"])
	}
}

func TestDiffAgainstOnlyAddedLines(t *testing.T) {
	dir, r, wt := initRepo(t)
	write(t, dir, "f.txt", "A\nB\nC\n")
	if _, err := wt.Add("f.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "base")

	head, err := r.Head()
	if err != nil {
		t.Fatal(err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("base"), head.Hash())
	if err := r.Storer.SetReference(ref); err != nil {
		t.Fatal(err)
	}

	// Modify: remove B, add D
	write(t, dir, "f.txt", "A\nC\nD\n")
	if _, err := wt.Add("f.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "change")

	files, data, err := DiffAgainst(dir, "base")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file in diff, got %d", len(files))
	}
	s := string(data[0])
	if containsLine(s, "B") {
		t.Fatalf("expected removed lines excluded, saw: %q", s)
	}
	if !containsLine(s, "D") {
		t.Fatalf("expected added line included, payload: %q", s)
	}
}

func TestDiffAgainstUnknownRevision(t *testing.T) {
	dir, _, wt := initRepo(t)
	write(t, dir, "f.txt", "x\n")
	if _, err := wt.Add("f.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "only")

	if _, _, err := DiffAgainst(dir, "no-such-branch"); err == nil {
		t.Fatal("expected error for unknown base revision")
	}
}

func TestRepoMetadata(t *testing.T) {
	dir, _, wt := initRepo(t)
	write(t, dir, "f.txt", "x\n")
	if _, err := wt.Add("f.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, wt, "only")

	_, commitHash, branch := RepoMetadata(dir)
	if commitHash == "" {
		t.Fatal("expected commit hash")
	}
	if branch == "" {
		t.Fatal("expected branch name")
	}
}
