package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/enveil/enveil/internal/remediate"
	"github.com/enveil/enveil/internal/types"
)

func sampleFindings() []types.Finding {
	return []types.Finding{
		{Path: "config.py", Line: 1, Start: 6, End: 26, Match: "AKIA1234567890ABCDEF", Rule: "aws_access_key", Severity: types.SevHigh, Confidence: 0.9},
		{Path: "app.py", Line: 2, Start: 40, End: 60, Match: "ghp_secretsecretsecr", Rule: "github_token", Severity: types.SevHigh, Confidence: 0.95},
	}
}

func key(s string) tea.Msg {
	if len(s) == 1 {
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return nil
}

func step(t *testing.T, m tea.Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return out
}

func TestReviewAcceptAndSkip(t *testing.T) {
	fs := sampleFindings()
	m := NewModel(fs, nil)

	m = step(t, m, key("a"))
	m = step(t, m, key("s"))

	if !m.done {
		t.Fatal("expected review complete after deciding both findings")
	}
	if m.Aborted() {
		t.Fatal("review must not be aborted")
	}
	d := m.Decisions()
	if d[fs[0].SpanKey()].Action != remediate.Accept {
		t.Fatal("first finding should be accepted")
	}
	if d[fs[1].SpanKey()].Action != remediate.Skip {
		t.Fatal("second finding should be skipped")
	}
}

func TestReviewEditLabel(t *testing.T) {
	fs := sampleFindings()
	m := NewModel(fs, nil)

	m = step(t, m, key("e"))
	if !m.editing {
		t.Fatal("expected edit mode")
	}
	// replace the suggested label wholesale
	m.labelInput.SetValue("MY_DEPLOY_KEY")
	m = step(t, m, key("enter"))

	d := m.Decisions()
	res := d[fs[0].SpanKey()]
	if res.Action != remediate.Accept || res.Label != "MY_DEPLOY_KEY" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if m.editing {
		t.Fatal("edit mode should end on enter")
	}
}

func TestReviewEditEscCancels(t *testing.T) {
	fs := sampleFindings()
	m := NewModel(fs, nil)

	m = step(t, m, key("e"))
	m = step(t, m, key("esc"))
	if m.editing {
		t.Fatal("esc should leave edit mode")
	}
	if len(m.Decisions()) != 0 {
		t.Fatal("cancelling the editor must not record a decision")
	}
	if m.idx != 0 {
		t.Fatal("cancelling must stay on the current finding")
	}
}

func TestReviewAcceptAll(t *testing.T) {
	fs := sampleFindings()
	m := NewModel(fs, nil)

	m = step(t, m, key("A"))
	if !m.done {
		t.Fatal("A should finish the review")
	}
	for _, f := range fs {
		if m.Decisions()[f.SpanKey()].Action != remediate.Accept {
			t.Fatalf("finding %s not accepted", f.SpanKey())
		}
	}
}

func TestReviewAbort(t *testing.T) {
	m := NewModel(sampleFindings(), nil)
	m = step(t, m, key("q"))
	if !m.Aborted() {
		t.Fatal("q should abort the review")
	}
}

func TestViewShowsFindingDetails(t *testing.T) {
	fs := sampleFindings()
	contents := map[string][]byte{
		"config.py": []byte("key = \"AKIA1234567890ABCDEF\"\nprint(\"hi\")\n"),
	}
	m := NewModel(fs, contents)
	out := m.View()
	if !strings.Contains(out, "Secret 1 of 2") {
		t.Fatalf("expected progress header, got: %q", out)
	}
	if !strings.Contains(out, "aws_access_key") {
		t.Fatalf("expected rule name in view, got: %q", out)
	}
	if !strings.Contains(out, "AWS_ACCESS_KEY") {
		t.Fatalf("expected suggested label in view, got: %q", out)
	}
}

func TestViewNoPreviewFallback(t *testing.T) {
	m := NewModel(sampleFindings(), nil)
	if !strings.Contains(m.View(), "no preview available") {
		t.Fatal("expected preview fallback text")
	}
}

func TestNewResolverMapsDecisions(t *testing.T) {
	fs := sampleFindings()
	decisions := map[string]remediate.Resolution{
		fs[0].SpanKey(): {Action: remediate.Accept, Label: "X"},
	}
	r := NewResolver(decisions)

	res, err := r.Resolve(context.Background(), remediate.Prompt{Finding: fs[0]})
	if err != nil || res.Action != remediate.Accept || res.Label != "X" {
		t.Fatalf("unexpected resolution: %+v err=%v", res, err)
	}
	// undecided findings default to skip
	res, err = r.Resolve(context.Background(), remediate.Prompt{Finding: fs[1]})
	if err != nil || res.Action != remediate.Skip {
		t.Fatalf("expected skip for undecided finding, got %+v err=%v", res, err)
	}
}
