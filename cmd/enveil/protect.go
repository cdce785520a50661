package enveil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/enveil/enveil/internal/audit"
	"github.com/enveil/enveil/internal/config"
	"github.com/enveil/enveil/internal/engine"
	"github.com/enveil/enveil/internal/remediate"
	"github.com/enveil/enveil/internal/tui"
	"github.com/enveil/enveil/internal/types"
	"github.com/enveil/enveil/internal/vault"
	"github.com/spf13/cobra"
)

var (
	flagProtectPath string
	flagYes         bool
	flagTemplate    string
)

func init() {
	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Seal detected secrets into the vault and rewrite files with placeholders",
		Long: `Protect scans the working tree, walks you through each finding, seals
accepted secrets into the local encrypted vault and replaces them in-place
with stable placeholders. A template file listing the sealed keys is
regenerated after every run.`,
		RunE: runProtect,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagProtectPath, "path", "p", ".", "path to protect")
	cmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "accept every finding without prompting")
	cmd.Flags().StringVar(&flagTemplate, "template", remediate.TemplateName, "path of the generated env template, relative to the root")
}

func runProtect(cmd *cobra.Command, _ []string) error {
	abs, _ := filepath.Abs(flagProtectPath)
	var gcfg, lcfg config.FileConfig
	if c, err := config.LoadGlobal(); err == nil {
		gcfg = c
	}
	if c, err := config.LoadLocal(abs); err == nil {
		lcfg = c
	}
	pcfg := lcfg.GetProtectConfig()
	if lcfg.Protect == nil {
		pcfg = gcfg.GetProtectConfig()
	}

	v := vault.Open(abs)
	if !v.Initialized() {
		return remediate.ErrVaultUnavailable
	}

	cfg := engine.Config{
		Root:            abs,
		IncludeGlobs:    pickString("", lcfg.Include, gcfg.Include),
		ExcludeGlobs:    pickString("", lcfg.Exclude, gcfg.Exclude),
		MaxBytes:        pickInt64(0, lcfg.MaxBytes, gcfg.MaxBytes),
		Threads:         pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
		EnableRules:     pickString("", lcfg.Enable, gcfg.Enable),
		DisableRules:    pickString("", lcfg.Disable, gcfg.Disable),
		MinConfidence:   pickFloat(flagMinConfidence, lcfg.MinConfidence, gcfg.MinConfidence),
		NoEntropy:       pickBool(false, lcfg.NoEntropy, gcfg.NoEntropy),
		DefaultExcludes: flagDefaultExcludes,
		NoCache:         true, // protect always rereads; the cache would hide unchanged files
	}
	res, err := engine.ScanWithStats(cfg)
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}
	for _, w := range res.Warnings {
		_, _ = fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if len(res.Findings) == 0 {
		fmt.Println("No secrets found; nothing to protect.")
		return nil
	}

	contents := make(map[string][]byte)
	byPath := make(map[string][]types.Finding)
	for _, f := range res.Findings {
		if _, ok := contents[f.Path]; !ok {
			b, err := os.ReadFile(filepath.Join(abs, filepath.FromSlash(f.Path)))
			if err != nil {
				_, _ = fmt.Fprintln(os.Stderr, "warning: skip", f.Path+":", err)
				continue
			}
			contents[f.Path] = b
		}
		byPath[f.Path] = append(byPath[f.Path], f)
	}

	var resolver remediate.Resolver = remediate.AcceptAll
	if !flagYes && !pcfg.IsYes() {
		decisions, err := tui.Review(res.Findings, contents)
		if errors.Is(err, tui.ErrAborted) {
			fmt.Println("Aborted; no changes made.")
			return nil
		}
		if err != nil {
			return err
		}
		resolver = tui.NewResolver(decisions)
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	eng := &remediate.Engine{Vault: v}
	var sealedIDs, filesChanged []string
	var tpl remediate.Template
	accepted, skipped := 0, 0
	for _, p := range paths {
		out, err := eng.Remediate(cmd.Context(), contents[p], byPath[p], resolver)
		if err != nil {
			return fmt.Errorf("protect %s: %w", p, err)
		}
		accepted += out.Accepted
		skipped += out.Skipped
		if out.Accepted == 0 {
			continue
		}
		full := filepath.Join(abs, filepath.FromSlash(p))
		mode := fs.FileMode(0644)
		if st, err := os.Stat(full); err == nil {
			mode = st.Mode().Perm()
		}
		if err := os.WriteFile(full, out.Content, mode); err != nil {
			return fmt.Errorf("rewrite %s: %w", p, err)
		}
		for _, e := range out.Sealed {
			sealedIDs = append(sealedIDs, e.ID)
		}
		filesChanged = append(filesChanged, p)
		tpl = out.Template
	}

	if len(filesChanged) > 0 {
		tplName := pcfg.GetTemplate()
		if cmd.Flags().Changed("template") {
			tplName = flagTemplate
		}
		tplPath := filepath.Join(abs, filepath.FromSlash(tplName))
		if err := tpl.Write(tplPath); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		rec := audit.CreateProtectRecord(abs, sealedIDs, filesChanged)
		if err := audit.NewAuditLog(abs).LogScan(rec); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "audit warning:", err)
		}
		fmt.Printf("Sealed %d secrets across %d files. Template written to %s.\n", accepted, len(filesChanged), tplName)
	} else {
		fmt.Println("No findings accepted; files unchanged.")
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d findings.\n", skipped)
	}
	return nil
}
