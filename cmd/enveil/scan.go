package enveil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/enveil/enveil/internal/audit"
	"github.com/enveil/enveil/internal/cache"
	"github.com/enveil/enveil/internal/config"
	"github.com/enveil/enveil/internal/engine"
	"github.com/enveil/enveil/internal/report"
	"github.com/enveil/enveil/internal/types"
	"github.com/enveil/enveil/internal/update"
	"github.com/spf13/cobra"
)

var (
	flagPath           string
	flagStaged         bool
	flagHistory        int
	flagBase           string
	flagInclude        string
	flagExclude        string
	flagMaxBytes       int64
	flagEnable         string
	flagDisable        string
	flagNoEntropy      bool
	flagEntropyCutoff  float64
	flagMinTokenLength int
	flagTable          bool
	flagText           bool
	flagAudit          bool
	flagBaseline       string
)

const baselineDefault = "enveil.baseline.json"

func init() {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan files for secrets",
		RunE:  runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().BoolVar(&flagStaged, "staged", false, "scan staged changes")
	cmd.Flags().IntVar(&flagHistory, "history", 0, "scan last N commits (0=off)")
	cmd.Flags().StringVar(&flagBase, "base", "", "scan diff vs base branch (e.g. main)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 1<<20, "skip files larger than this")
	cmd.Flags().StringVar(&flagEnable, "enable", "", "only run these rules (comma-separated IDs)")
	cmd.Flags().StringVar(&flagDisable, "disable", "", "disable these rules (comma-separated IDs)")
	cmd.Flags().BoolVar(&flagNoEntropy, "no-entropy", false, "disable the generic entropy sweep")
	cmd.Flags().Float64Var(&flagEntropyCutoff, "entropy-threshold", 0, "entropy sweep threshold (0 = default)")
	cmd.Flags().IntVar(&flagMinTokenLength, "min-token-length", 0, "shortest token the entropy sweep considers (0 = default)")
	cmd.Flags().BoolVar(&flagTable, "table", false, "output in table format with borders (now default)")
	cmd.Flags().BoolVar(&flagText, "text", false, "output in plain text columnar format")
	cmd.Flags().BoolVar(&flagAudit, "audit", false, "append this scan to the audit log")
	cmd.Flags().StringVar(&flagBaseline, "baseline", baselineDefault, "baseline file to suppress known findings")
}

func runScan(cmd *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagPath)
	// Load configs: CLI > local > global
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	}

	cfg := engine.Config{
		Root:             abs,
		IncludeGlobs:     pickString(flagInclude, lcfg.Include, gcfg.Include),
		ExcludeGlobs:     pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
		MaxBytes:         pickInt64(flagMaxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
		ScanStaged:       flagStaged,
		HistoryCommits:   flagHistory,
		BaseBranch:       flagBase,
		Threads:          pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
		EnableRules:      pickString(flagEnable, lcfg.Enable, gcfg.Enable),
		DisableRules:     pickString(flagDisable, lcfg.Disable, gcfg.Disable),
		MinConfidence:    pickFloat(flagMinConfidence, lcfg.MinConfidence, gcfg.MinConfidence),
		EntropyThreshold: pickFloat(flagEntropyCutoff, lcfg.EntropyThreshold, gcfg.EntropyThreshold),
		MinTokenLength:   pickInt(flagMinTokenLength, lcfg.MinTokenLength, gcfg.MinTokenLength),
		NoEntropy:        pickBool(flagNoEntropy, lcfg.NoEntropy, gcfg.NoEntropy),
		DryRun:           pickBool(flagDryRun, nil, nil),
		NoColor:          pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor),
		NoCache:          pickBool(flagNoCache, lcfg.NoCache, gcfg.NoCache),
		DefaultExcludes:  flagDefaultExcludes,
	}

	// fail-on: CLI when set explicitly, else local > global > default
	failOn := flagFailOn
	if !cmd.Flags().Changed("fail-on") {
		if v := pickString("", lcfg.FailOn, gcfg.FailOn); v != "" {
			failOn = v
		}
	}

	// Friendly banner before scanning
	if !flagJSON && !flagSARIF {
		if !flagNoUpdateCheck {
			if latest, newer, _ := update.Check(version, false); newer && latest != "" {
				_, _ = fmt.Fprintf(os.Stderr, "(new version available: v%s)  run 'enveil update' to upgrade\n", latest)
			}
		}
		if flagSelfUpdate {
			// invoke in-band self update
			if err := selfUpdate(); err == nil {
				_, _ = fmt.Fprintln(os.Stderr, "updated to latest; re-run command")
				return nil
			}
		}
		_, _ = fmt.Fprintf(os.Stderr, "Scanning %s with %d rules...\n", abs, len(engine.RuleIDs()))
	}

	// Optional progress bar: simple textual bar
	total, _ := engine.CountTargets(cfg)
	progressed := 0
	if total > 0 && !flagJSON && !flagSARIF {
		cfg.Progress = func() {
			progressed++
			if progressed%10 == 0 || progressed == total {
				pct := float64(progressed) / float64(total) * 100
				_, _ = fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%%", progressed, total, pct)
			}
		}
	}
	res, err := engine.ScanWithStats(cfg)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	if total > 0 && !flagJSON && !flagSARIF {
		_, _ = fmt.Fprintln(os.Stderr)
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintln(os.Stderr, "warning:", w)
	}

	baseline, _ := report.LoadBaseline(flagBaseline)
	newFindings := report.FilterNewFindings(res.Findings, baseline)
	if newFindings == nil {
		newFindings = []types.Finding{}
	} // no `null` in JSON

	opts := report.PrintOptions{
		NoColor:      cfg.NoColor,
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
	}
	switch {
	case flagSARIF:
		if err := report.WriteSARIF(os.Stdout, newFindings); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newFindings); err != nil {
			return err
		}
	case flagText:
		report.PrintText(os.Stdout, newFindings, opts)
	default:
		report.PrintTable(os.Stdout, newFindings, opts)
	}

	if !cfg.DryRun && !cfg.NoCache {
		if err := cache.SaveResults(abs, res.Findings); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "cache warning:", err)
		}
	}

	if flagAudit || pickBool(false, lcfg.Audit, gcfg.Audit) {
		rec := audit.CreateScanRecord(abs, res.Findings, newFindings, res.FilesScanned, res.Duration, flagBaseline)
		if err := audit.NewAuditLog(abs).LogScan(rec); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "audit warning:", err)
		}
	}

	if cmd.Flags().Changed("enable") || cmd.Flags().Changed("disable") {
		_, _ = fmt.Fprintf(os.Stderr, "rules active: %s\n", activeSetSummary(cfg))
	}

	if report.ShouldFail(newFindings, failOn) {
		os.Exit(1)
	}
	return nil
}

func activeSetSummary(cfg engine.Config) string {
	ids := engine.RuleIDs()
	if cfg.EnableRules != "" {
		ids = strings.Split(cfg.EnableRules, ",")
	}
	if cfg.DisableRules != "" && cfg.EnableRules == "" {
		disabled := map[string]bool{}
		for _, d := range strings.Split(cfg.DisableRules, ",") {
			disabled[strings.TrimSpace(d)] = true
		}
		var kept []string
		for _, id := range ids {
			if !disabled[strings.TrimSpace(id)] {
				kept = append(kept, id)
			}
		}
		ids = kept
	}
	return strings.Join(ids, ",")
}
