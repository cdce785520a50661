// Package git reads repository state for staged, history, and diff scans.
// It uses go-git directly instead of shelling out, so scans work without a
// git binary on PATH (CI containers, hook environments).
package git

import (
	"fmt"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Entry is one commit and the contents of the files it touched.
type Entry struct {
	Hash  string
	Files map[string][]byte
}

// RepoMetadata returns (repo, commit, branch) best-effort for the given
// root. Empty strings are returned on failure.
func RepoMetadata(root string) (string, string, string) {
	r, err := gogit.PlainOpen(root)
	if err != nil {
		return "", "", ""
	}

	repo := ""
	if remote, err := r.Remote("origin"); err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 {
			s := strings.TrimSuffix(urls[0], ".git")
			if i := strings.Index(s, "github.com/"); i >= 0 {
				s = s[i+len("github.com/"):]
			} else if i := strings.LastIndex(s, ":"); i >= 0 {
				s = s[i+1:]
			}
			repo = s
		}
	}
	commit, branch := "", ""
	if head, err := r.Head(); err == nil {
		commit = head.Hash().String()
		branch = head.Name().Short()
	}
	return repo, commit, branch
}

// Staged returns the paths and contents of files staged in the index that
// differ from HEAD. On an unborn branch every index entry counts.
func Staged(root string) ([]string, [][]byte, error) {
	r, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, nil, err
	}
	idx, err := r.Storer.Index()
	if err != nil {
		return nil, nil, err
	}

	var headTree *object.Tree
	if head, err := r.Head(); err == nil {
		commit, err := object.GetCommit(r.Storer, head.Hash())
		if err != nil {
			return nil, nil, err
		}
		headTree, err = commit.Tree()
		if err != nil {
			return nil, nil, err
		}
	}

	var paths []string
	var data [][]byte
	for _, e := range idx.Entries {
		if headTree != nil {
			te, err := headTree.FindEntry(e.Name)
			if err == nil && te.Hash == e.Hash {
				continue // unchanged relative to HEAD
			}
		}
		b, err := readBlob(r, e.Hash)
		if err != nil {
			continue
		}
		paths = append(paths, e.Name)
		data = append(data, b)
	}
	return paths, data, nil
}

// LastNCommits walks back from HEAD and returns up to n commits with the
// contents of the files each one changed relative to its first parent.
func LastNCommits(root string, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	r, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, err
	}
	iter, err := r.Log(&gogit.LogOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for len(entries) < n {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		files, err := commitFiles(c)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Hash: c.Hash.String(), Files: files})
	}
	return entries, nil
}

// DiffAgainst compares HEAD to the given base revision and returns, per
// changed file, only the lines the change added. Removed lines never reach
// detectors: a secret deleted on this branch is the base branch's problem.
func DiffAgainst(root, base string) ([]string, [][]byte, error) {
	r, err := gogit.PlainOpen(root)
	if err != nil {
		return nil, nil, err
	}
	baseHash, err := r.ResolveRevision(plumbing.Revision(base))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %q: %w", base, err)
	}
	baseTree, err := treeAt(r, *baseHash)
	if err != nil {
		return nil, nil, err
	}
	head, err := r.Head()
	if err != nil {
		return nil, nil, err
	}
	headTree, err := treeAt(r, head.Hash())
	if err != nil {
		return nil, nil, err
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, nil, err
	}
	patch, err := changes.Patch()
	if err != nil {
		return nil, nil, err
	}

	var paths []string
	var data [][]byte
	for _, fp := range patch.FilePatches() {
		_, to := fp.Files()
		if to == nil {
			continue // deletion
		}
		var b strings.Builder
		for _, chunk := range fp.Chunks() {
			if chunk.Type() == fdiff.Add {
				b.WriteString(chunk.Content())
			}
		}
		paths = append(paths, to.Path())
		data = append(data, []byte(b.String()))
	}
	return paths, data, nil
}

func commitFiles(c *object.Commit) (map[string][]byte, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	files := map[string][]byte{}

	if c.NumParents() == 0 {
		err := tree.Files().ForEach(func(f *object.File) error {
			s, err := f.Contents()
			if err != nil {
				return nil
			}
			files[f.Name] = []byte(s)
			return nil
		})
		return files, err
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		if ch.To.Name == "" {
			continue // deletion
		}
		f, err := tree.File(ch.To.Name)
		if err != nil {
			continue
		}
		s, err := f.Contents()
		if err != nil {
			continue
		}
		files[ch.To.Name] = []byte(s)
	}
	return files, nil
}

func treeAt(r *gogit.Repository, h plumbing.Hash) (*object.Tree, error) {
	c, err := object.GetCommit(r.Storer, h)
	if err != nil {
		return nil, err
	}
	return c.Tree()
}

func readBlob(r *gogit.Repository, h plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(r.Storer, h)
	if err != nil {
		return nil, err
	}
	rc, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
