package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/enveil/enveil/internal/remediate"
	"github.com/enveil/enveil/internal/types"
)

// ErrAborted is returned when the user quits the review before deciding
// every finding.
var ErrAborted = errors.New("review aborted")

// Review runs the interactive review and returns the collected decisions.
func Review(findings []types.Finding, contents map[string][]byte) (map[string]remediate.Resolution, error) {
	m := NewModel(findings, contents)
	out, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	final, ok := out.(Model)
	if !ok {
		return nil, errors.New("unexpected model type")
	}
	if final.Aborted() {
		return nil, ErrAborted
	}
	return final.Decisions(), nil
}

// NewResolver adapts recorded review decisions to the remediation
// engine's Resolver interface. Findings with no recorded decision are
// skipped.
func NewResolver(decisions map[string]remediate.Resolution) remediate.Resolver {
	return remediate.ResolverFunc(func(_ context.Context, p remediate.Prompt) (remediate.Resolution, error) {
		if r, ok := decisions[p.Finding.SpanKey()]; ok {
			return r, nil
		}
		return remediate.Resolution{Action: remediate.Skip}, nil
	})
}
