package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shotclock/internal/ipc"
)

func newCaptureCommands(ctx *commandContext) []*cobra.Command {
	transition := func(use, short, done string, call func(*ipc.Client) (*ipc.StateResponse, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := call(client)
					if err != nil {
						return err
					}
					if resp.Error != "" {
						return errors.New(resp.Error)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s (state: %s)\n", done, resp.State)
					return nil
				})
			},
		}
	}

	return []*cobra.Command{
		transition("pause", "Pause capturing without stopping the daemon", "Capture paused", (*ipc.Client).Pause),
		transition("resume", "Resume a paused capture cycle", "Capture resumed", (*ipc.Client).Resume),
		transition("toggle", "Pause when running, resume when paused", "Capture toggled", (*ipc.Client).Toggle),
	}
}
