package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotclock/internal/ipc"
)

func newPairCommand(ctx *commandContext) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "pair [code]",
		Short: "Bind this device to an account with a pairing code",
		Long: "Submit the pairing code shown by the service. A successful pairing binds the\n" +
			"device to the returned account and starts capturing if it was stopped.\n" +
			"Use --reset to clear the current binding.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !reset && len(args) == 0 {
				return errors.New("pairing code is required (or pass --reset)")
			}
			if reset && len(args) > 0 {
				return errors.New("--reset does not take a pairing code")
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if reset {
					resp, err := client.ResetPairing()
					if err != nil {
						return err
					}
					if resp.Error != "" {
						return errors.New(resp.Error)
					}
					fmt.Fprintln(stdout, "Pairing cleared")
					return nil
				}

				resp, err := client.Pair(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if !resp.Paired {
					if resp.ErrorKind != "" {
						return fmt.Errorf("pairing failed (%s): %s", resp.ErrorKind, resp.Error)
					}
					return fmt.Errorf("pairing failed: %s", resp.Error)
				}
				fmt.Fprintf(stdout, "Paired as %s\n", resp.UserID)
				if resp.Started {
					fmt.Fprintln(stdout, "Capture started")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear the current pairing")
	return cmd
}
