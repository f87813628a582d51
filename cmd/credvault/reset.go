package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const confirmationYes = "yes"

func newResetCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every credential in the vault",
		Long: `Delete every credential in the vault.

This runs on the trusted side only and is not reachable through the mediator.
The encryption master key in the OS keyring is left in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			if !yes {
				_, _ = warn.Printf("This permanently deletes all credentials in %s\n", a.store.Dir())
				fmt.Printf("Type '%s' to continue: ", confirmationYes)
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if strings.TrimSpace(line) != confirmationYes {
					return errors.New("reset cancelled")
				}
			}

			n, err := a.store.DeleteAll(cmd.Context())
			if opts.jsonOutput {
				if jerr := printJSON(map[string]interface{}{"deleted": n, "success": err == nil}); jerr != nil {
					return jerr
				}
			} else {
				fmt.Printf("%s Deleted %d credential(s)\n", good.Sprint("✓"), n)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
