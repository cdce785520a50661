package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/enveil/enveil/internal/types"
)

func TestLogAndLoadHistory(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir)

	fs := []types.Finding{{Path: "a.go", Rule: "jwt", Match: "raw-secret-value", Severity: types.SevMed, Line: 2}}
	rec := CreateScanRecord(dir, fs, fs, 5, 2*time.Second, "")
	if err := a.LogScan(rec); err != nil {
		t.Fatalf("log: %v", err)
	}
	rec2 := CreateScanRecord(dir, nil, nil, 3, time.Second, "")
	if err := a.LogScan(rec2); err != nil {
		t.Fatalf("log: %v", err)
	}

	records, err := a.LoadHistory()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// newest first
	if records[0].FilesScanned != 3 {
		t.Fatalf("expected newest record first, got %+v", records[0])
	}
}

func TestAuditLogRedactsSecrets(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir)
	fs := []types.Finding{{
		Path:     "a.go",
		Rule:     "jwt",
		Match:    "raw-secret-value",
		Context:  `token = "raw-secret-value"`,
		Severity: types.SevMed,
	}}
	if err := a.LogScan(CreateScanRecord(dir, fs, fs, 1, time.Second, "")); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, ".enveil_audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "raw-secret-value") {
		t.Fatal("raw secret written to audit log")
	}
	if !strings.Contains(string(b), "[REDACTED]") {
		t.Fatal("expected redaction marker in log")
	}
}

func TestAuditLogPermissions(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir)
	if err := a.LogScan(CreateScanRecord(dir, nil, nil, 0, time.Second, "")); err != nil {
		t.Fatal(err)
	}
	st, err := os.Stat(filepath.Join(dir, ".enveil_audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0600 {
		t.Fatalf("expected 0600 permissions, got %v", st.Mode().Perm())
	}
}

func TestAuditLogUnderGitDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	a := NewAuditLog(dir)
	if err := a.LogScan(CreateProtectRecord(dir, []string{"abc123"}, []string{"config.py"})); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".git", "enveil_audit.jsonl")); err != nil {
		t.Fatalf("expected log under .git: %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir)
	for i := 0; i < 3; i++ {
		if err := a.LogScan(CreateScanRecord(dir, nil, nil, i, time.Second, "")); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.DeleteRecord(0); err != nil {
		t.Fatal(err)
	}
	records, err := a.LoadHistory()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after delete, got %d", len(records))
	}
	if err := a.DeleteRecord(9); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
