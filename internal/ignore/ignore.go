// Package ignore parses .enveilignore files: one pattern per line,
// gitignore-flavored. Directory patterns end in a slash, glob patterns
// use doublestar syntax, everything else is an exact relative path.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileName is the per-repo ignore file searched at the scan root.
const FileName = ".enveilignore"

type pattern struct {
	raw string
	dir bool // trailing slash: match anything under the directory
}

// Matcher holds parsed ignore patterns.
type Matcher struct {
	patterns []pattern
}

// Load parses an ignore file. Blank lines and '#' comments are skipped.
func Load(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Matcher
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := pattern{raw: line}
		if strings.HasSuffix(line, "/") {
			p.dir = true
			p.raw = strings.TrimSuffix(line, "/")
		}
		m.patterns = append(m.patterns, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadRoot loads the ignore file from the repo root if present. A missing
// file yields an empty matcher, not an error.
func LoadRoot(root string) (*Matcher, error) {
	m, err := Load(filepath.Join(root, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, err
	}
	return m, nil
}

// Match reports whether the given slash-separated relative path is
// ignored.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range m.patterns {
		if p.dir {
			if rel == p.raw || strings.HasPrefix(rel, p.raw+"/") {
				return true
			}
			continue
		}
		if rel == p.raw || filepath.Base(rel) == p.raw {
			return true
		}
		if ok, err := doublestar.Match(p.raw, rel); err == nil && ok {
			return true
		}
		// bare globs like *.pem apply to the basename anywhere in the tree
		if ok, err := doublestar.Match(p.raw, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

// Len returns the number of loaded patterns.
func (m *Matcher) Len() int { return len(m.patterns) }
