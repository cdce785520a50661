package enveil

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/enveil/enveil/internal/hooks"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage git hooks that scan before commit and push",
	}
	rootCmd.AddCommand(cmd)

	var hooksPath string
	var force bool
	install := &cobra.Command{
		Use:   "install",
		Short: "Install pre-commit and pre-push hooks",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(hooksPath)
			if err := hooks.New(abs).Install(force); err != nil {
				return err
			}
			fmt.Println("Hooks installed.")
			return nil
		},
	}
	install.Flags().BoolVar(&force, "force", false, "overwrite existing foreign hooks")

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove installed hooks",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(hooksPath)
			n, err := hooks.New(abs).Uninstall()
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d hooks.\n", n)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show which hooks are installed",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(hooksPath)
			st := hooks.New(abs).Status()
			names := make([]string, 0, len(st))
			for name := range st {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				state := "not installed"
				if st[name] {
					state = "installed"
				}
				fmt.Printf("%-12s %s\n", name, state)
			}
			return nil
		},
	}

	for _, sub := range []*cobra.Command{install, uninstall, status} {
		sub.Flags().StringVarP(&hooksPath, "path", "p", ".", "repo root")
		cmd.AddCommand(sub)
	}
}
