package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"credvault/internal/credentials"
	"credvault/internal/mediator"
	"credvault/internal/tui"
)

func newSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider> <type> [value]",
		Short: "Store or replace a credential",
		Long: `Store or replace a credential.

If value is not provided it is read from stdin. On a terminal the input
is not echoed. Passing the value as an argument leaves it in shell history.

Examples:
  credvault set openai api-key
  echo "$OPENAI_API_KEY" | credvault set openai api-key`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 3 {
				value = args[2]
			} else {
				v, err := readSecret(fmt.Sprintf("Value for %s/%s: ", args[0], args[1]))
				if err != nil {
					return err
				}
				value = v
			}

			return withCaller(cmd, opts, func(a *app, c mediator.Caller) error {
				res, err := c.Store(cmd.Context(), args[0], args[1], value)
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				if opts.jsonOutput {
					return printJSON(res)
				}
				fmt.Printf("%s Stored %s/%s\n", good.Sprint("✓"), args[0], args[1])
				return nil
			})
		},
	}
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <provider> <type>",
		Short: "Show a stored credential (masked unless --reveal)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaller(cmd, opts, func(a *app, c mediator.Caller) error {
				res, err := c.Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Error)
				}

				if res.Value != nil && !reveal {
					masked := tui.Mask(*res.Value)
					res.Value = &masked
				}

				if opts.jsonOutput {
					return printJSON(res)
				}
				if res.Value == nil {
					_, _ = warn.Printf("No credential stored for %s/%s\n", args[0], args[1])
					return nil
				}
				fmt.Println(*res.Value)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the plaintext value")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <provider> <type>",
		Aliases: []string{"rm"},
		Short:   "Delete a credential (succeeds if absent)",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaller(cmd, opts, func(a *app, c mediator.Caller) error {
				res, err := c.Delete(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				if opts.jsonOutput {
					return printJSON(res)
				}
				fmt.Printf("%s Deleted %s/%s\n", good.Sprint("✓"), args[0], args[1])
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored credentials (metadata only)",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCaller(cmd, opts, func(a *app, c mediator.Caller) error {
				res, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				if opts.jsonOutput {
					return printJSON(res)
				}
				printCredentials(res.Credentials)
				return nil
			})
		},
	}
}

func printCredentials(items []credentials.Metadata) {
	if len(items) == 0 {
		_, _ = subtle.Println("No credentials stored.")
		return
	}
	rows := make([][]string, 0, len(items))
	for _, md := range items {
		rows = append(rows, []string{md.Provider, md.Type})
	}
	printTable([]string{"PROVIDER", "TYPE"}, rows)
}

// withCaller loads the app, obtains a mediator caller and runs fn.
func withCaller(cmd *cobra.Command, opts *rootOptions, fn func(*app, mediator.Caller) error) error {
	a, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer a.close()

	c, closeFn, err := a.caller(cmd.Context(), opts.remote)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(a, c)
}

func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read value: %w", err)
		}
		return string(b), nil
	}

	data, err := io.ReadAll(io.LimitReader(os.Stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
