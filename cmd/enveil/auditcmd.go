package enveil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/enveil/enveil/internal/audit"
	"github.com/enveil/enveil/internal/cache"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the scan and protect audit log",
	}
	rootCmd.AddCommand(cmd)

	var auditPath string
	history := &cobra.Command{
		Use:   "history",
		Short: "Show past scans and protect runs, newest first",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(auditPath)
			records, err := audit.NewAuditLog(abs).LoadHistory()
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					fmt.Println("No audit history.")
					return nil
				}
				return err
			}
			if len(records) == 0 {
				fmt.Println("No audit history.")
				return nil
			}
			table := tablewriter.NewTable(os.Stdout)
			table.Header("#", "WHEN", "KIND", "FINDINGS", "NEW", "FILES", "SEALED")
			for i, r := range records {
				kind := "scan"
				if strings.HasPrefix(r.ScanID, "protect_") {
					kind = "protect"
				}
				table.Append([]string{
					strconv.Itoa(i),
					r.Timestamp.Format("2006-01-02 15:04"),
					kind,
					strconv.Itoa(r.TotalFindings),
					strconv.Itoa(r.NewFindings),
					strconv.Itoa(r.FilesScanned),
					strconv.Itoa(len(r.SealedEntries)),
				})
			}
			return table.Render()
		},
	}

	last := &cobra.Command{
		Use:   "last",
		Short: "Show where the previous scan found secrets",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(auditPath)
			results, err := cache.LoadResults(abs)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					fmt.Println("No previous scan recorded.")
					return nil
				}
				return err
			}
			fmt.Printf("Last scan: %s (%d findings)\n", results.Timestamp.Format("2006-01-02 15:04"), results.Count)
			if len(results.Findings) == 0 {
				return nil
			}
			table := tablewriter.NewTable(os.Stdout)
			table.Header("SEVERITY", "RULE", "LOCATION", "CONFIDENCE")
			for _, f := range results.Findings {
				table.Append([]string{
					string(f.Severity),
					f.Rule,
					fmt.Sprintf("%s:%d", f.Path, f.Line),
					fmt.Sprintf("%.2f", f.Confidence),
				})
			}
			return table.Render()
		},
	}

	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete one record by its history index",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad index %q", args[0])
			}
			abs, _ := filepath.Abs(auditPath)
			if err := audit.NewAuditLog(abs).DeleteRecord(idx); err != nil {
				return err
			}
			fmt.Println("Record deleted.")
			return nil
		},
	}

	for _, sub := range []*cobra.Command{history, last, del} {
		sub.Flags().StringVarP(&auditPath, "path", "p", ".", "repo root")
		cmd.AddCommand(sub)
	}
}
