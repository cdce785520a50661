package remediate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/enveil/enveil/internal/vault"
)

// TemplateName is the default template file written next to the project
// root.
const TemplateName = ".env.example"

// Row is one key in the template. Values are always empty: the template
// documents which variables exist, never what they were.
type Row struct {
	Key     string
	EntryID string
}

// Template is the generated .env.example content. It is rebuilt wholesale
// from the vault on every remediation run, never hand-edited.
type Template struct {
	Rows []Row
}

// BuildTemplate derives template rows from vault entries. Labels are
// normalized to environment-variable shape and deduplicated with numeric
// suffixes so two distinct secrets never collapse into one row.
func BuildTemplate(entries []vault.Entry) Template {
	seen := map[string]int{}
	var rows []Row
	for _, e := range entries {
		key := normalizeKey(e.Label)
		if key == "" {
			key = "SECRET"
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		rows = append(rows, Row{Key: key, EntryID: e.ID})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return Template{Rows: rows}
}

// Render produces the plain key=value lines, one per row, values blank.
func (t Template) Render() []byte {
	var b strings.Builder
	b.WriteString("# Generated by enveil. Fill in values locally; never commit them.\n")
	for _, r := range t.Rows {
		b.WriteString(r.Key)
		b.WriteString("=\n")
	}
	return []byte(b.String())
}

// Write persists the template atomically (write-temp-then-rename) so a
// crash never leaves a partial file.
func (t Template) Write(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".env.example.tmp-*")
	if err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(t.Render()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write template: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write template: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

func normalizeKey(label string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(label) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '-', r == ' ', r == '.':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
