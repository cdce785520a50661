package enveil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/enveil/enveil/internal/vault"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the encrypted secret vault",
	}
	rootCmd.AddCommand(cmd)

	var initPath string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a vault in this repo",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(initPath)
			v := vault.Open(abs)
			kp, err := v.Init()
			if err != nil {
				return err
			}
			defer kp.Private.Zero()
			fmt.Println("Vault initialized at", v.Dir())
			fmt.Println("Public key: ", kp.Public.String())
			fmt.Println("Private key:", kp.Private.Encode())
			fmt.Println()
			fmt.Println("Store the private key outside this repository. It is shown only")
			fmt.Println("once and is required to unseal or rotate entries.")
			return nil
		},
	}
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "repo root")
	cmd.AddCommand(initCmd)

	var listPath string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sealed entries",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(listPath)
			v := vault.Open(abs)
			entries, err := v.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Vault is empty.")
				return nil
			}
			table := tablewriter.NewTable(os.Stdout)
			table.Header("ID", "LABEL", "SOURCE", "CREATED")
			for _, e := range entries {
				src := e.SourcePath
				if e.SourceLine > 0 {
					src = fmt.Sprintf("%s:%d", e.SourcePath, e.SourceLine)
				}
				table.Append([]string{e.ID, e.Label, src, e.CreatedAt.Format("2006-01-02 15:04")})
			}
			return table.Render()
		},
	}
	listCmd.Flags().StringVarP(&listPath, "path", "p", ".", "repo root")
	cmd.AddCommand(listCmd)

	var showPath string
	var reveal, copyClip bool
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a vault entry; --reveal decrypts it",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			abs, _ := filepath.Abs(showPath)
			v := vault.Open(abs)
			e, err := v.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Println("ID:     ", e.ID)
			fmt.Println("Label:  ", e.Label)
			if e.SourcePath != "" {
				fmt.Printf("Source:  %s:%d\n", e.SourcePath, e.SourceLine)
			}
			fmt.Println("Created:", e.CreatedAt.Format("2006-01-02 15:04:05"))
			if !reveal && !copyClip {
				return nil
			}
			priv, err := readPrivateKey()
			if err != nil {
				return err
			}
			defer priv.Zero()
			plain, err := v.Unseal(e.ID, priv)
			if err != nil {
				return err
			}
			if copyClip {
				if err := clipboard.WriteAll(string(plain)); err != nil {
					return fmt.Errorf("clipboard: %w", err)
				}
				fmt.Println("Value copied to clipboard.")
				return nil
			}
			fmt.Println("Value:  ", string(plain))
			return nil
		},
	}
	showCmd.Flags().StringVarP(&showPath, "path", "p", ".", "repo root")
	showCmd.Flags().BoolVar(&reveal, "reveal", false, "decrypt and print the value")
	showCmd.Flags().BoolVar(&copyClip, "copy", false, "decrypt and copy the value to the clipboard")
	cmd.AddCommand(showCmd)

	var rotatePath string
	rotateCmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the vault key pair, re-sealing every entry",
		RunE: func(_ *cobra.Command, _ []string) error {
			abs, _ := filepath.Abs(rotatePath)
			v := vault.Open(abs)
			oldPriv, err := readPrivateKey()
			if err != nil {
				return err
			}
			defer oldPriv.Zero()
			next, err := vault.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer next.Private.Zero()
			if err := v.Rotate(next, oldPriv); err != nil {
				return err
			}
			fmt.Println("Vault rotated.")
			fmt.Println("New public key: ", next.Public.String())
			fmt.Println("New private key:", next.Private.Encode())
			fmt.Println()
			fmt.Println("The old private key no longer decrypts anything. Store the new one safely.")
			return nil
		},
	}
	rotateCmd.Flags().StringVarP(&rotatePath, "path", "p", ".", "repo root")
	cmd.AddCommand(rotateCmd)
}

// readPrivateKey takes the owner key from ENVEIL_PRIVATE_KEY or prompts
// for it without echo.
func readPrivateKey() (vault.PrivateKey, error) {
	if s := os.Getenv("ENVEIL_PRIVATE_KEY"); s != "" {
		return vault.ParsePrivateKey(s)
	}
	_, _ = fmt.Fprint(os.Stderr, "private key: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return vault.PrivateKey{}, err
	}
	defer func() {
		for i := range b {
			b[i] = 0
		}
	}()
	return vault.ParsePrivateKey(string(b))
}
