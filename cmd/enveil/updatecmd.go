package enveil

import (
	"fmt"

	"github.com/enveil/enveil/internal/update"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update enveil to the latest release",
		RunE: func(_ *cobra.Command, _ []string) error {
			latest, newer, _ := update.Check(version, false)
			if latest != "" && !newer {
				fmt.Println("Already up to date (v" + version + ").")
				return nil
			}
			if err := selfUpdate(); err != nil {
				return fmt.Errorf("self-update failed: %w", err)
			}
			fmt.Println("Updated to the latest release.")
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
