// Package remediate rewrites detected secrets out of source files: each
// accepted finding is sealed into the vault and replaced in-place with a
// placeholder referencing the entry. The engine decides what to ask; how
// the answer is collected (TUI, flags, test stubs) is the caller's
// Resolver.
package remediate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/enveil/enveil/internal/types"
	"github.com/enveil/enveil/internal/vault"
)

// ErrVaultUnavailable is returned when remediation is attempted against an
// uninitialized vault. The whole run aborts before any file is touched:
// partially protected files are worse than honestly unprotected ones.
var ErrVaultUnavailable = errors.New("vault not initialized: run 'enveil vault init' first")

// Placeholder renders the sentinel left in source for a vault entry. It is
// matched by rules.PlaceholderRef and ignored by subsequent scans.
func Placeholder(id string) string {
	return "{{enveil:" + id + "}}"
}

// Action is the outcome of one confirmation prompt.
type Action int

const (
	Skip Action = iota
	Accept
)

// Prompt is one pending decision: a finding plus display material. The
// engine emits prompts in descending confidence order.
type Prompt struct {
	Finding        types.Finding
	SuggestedLabel string
}

// Resolution answers a Prompt. An empty Label keeps the suggestion.
type Resolution struct {
	Action Action
	Label  string
}

// Resolver collects the user's answer for a prompt. Implementations
// include the interactive TUI and the --yes auto-acceptor.
type Resolver interface {
	Resolve(ctx context.Context, p Prompt) (Resolution, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, p Prompt) (Resolution, error)

func (f ResolverFunc) Resolve(ctx context.Context, p Prompt) (Resolution, error) { return f(ctx, p) }

// AcceptAll resolves every prompt positively with the suggested label.
var AcceptAll = ResolverFunc(func(_ context.Context, _ Prompt) (Resolution, error) {
	return Resolution{Action: Accept}, nil
})

// Result summarizes one file's remediation.
type Result struct {
	Content  []byte // rewritten file content
	Sealed   []vault.Entry
	Accepted int
	Skipped  int
	Template Template // regenerated from the full vault
}

// Engine drives remediation against one vault.
type Engine struct {
	Vault *vault.Vault
}

// Remediate processes findings for a single file's content. Prompts are
// issued in descending confidence order; accepted secrets are sealed
// before any span is rewritten, and spans are replaced back-to-front so
// earlier offsets stay valid. Cancellation via ctx takes effect between
// findings, never mid-replacement.
func (e *Engine) Remediate(ctx context.Context, content []byte, findings []types.Finding, r Resolver) (Result, error) {
	var res Result
	if e.Vault == nil || !e.Vault.Initialized() {
		return res, ErrVaultUnavailable
	}

	ordered := make([]types.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	type replacement struct {
		start, end int
		text       string
	}
	var reps []replacement

	for _, f := range ordered {
		if err := ctx.Err(); err != nil {
			break
		}
		if f.Start < 0 || f.End > len(content) || f.Start >= f.End {
			continue
		}
		resolution, err := r.Resolve(ctx, Prompt{Finding: f, SuggestedLabel: DeriveLabel(f)})
		if err != nil {
			return res, fmt.Errorf("resolve %s:%d: %w", f.Path, f.Line, err)
		}
		if resolution.Action != Accept {
			res.Skipped++
			continue
		}
		label := resolution.Label
		if label == "" {
			label = DeriveLabel(f)
		}
		entry, err := e.Vault.Seal([]byte(f.Match), label, f.Path, f.Line)
		if err != nil {
			return res, fmt.Errorf("seal %s:%d: %w", f.Path, f.Line, err)
		}
		res.Sealed = append(res.Sealed, entry)
		res.Accepted++
		reps = append(reps, replacement{start: f.Start, end: f.End, text: Placeholder(entry.ID)})
	}

	// Apply from the end of the file backward: earlier spans keep their
	// offsets while later ones are rewritten.
	sort.Slice(reps, func(i, j int) bool { return reps[i].start > reps[j].start })
	out := make([]byte, len(content))
	copy(out, content)
	lastStart := len(content) + 1
	for _, rep := range reps {
		if rep.end > lastStart {
			continue // overlapping accept; first writer wins
		}
		out = append(out[:rep.start], append([]byte(rep.text), out[rep.end:]...)...)
		lastStart = rep.start
	}
	res.Content = out

	entries, err := e.Vault.List()
	if err != nil {
		return res, err
	}
	res.Template = BuildTemplate(entries)
	return res, nil
}

// DeriveLabel proposes a template key for a finding: the rule ID in
// SCREAMING_SNAKE_CASE, which doubles as the .env.example variable name.
func DeriveLabel(f types.Finding) string {
	id := f.Rule
	if id == "" || id == types.RuleEntropyHeuristic {
		id = "secret"
	}
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_"))
}
