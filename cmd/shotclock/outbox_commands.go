package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shotclock/internal/ipc"
)

func newOutboxCommand(ctx *commandContext) *cobra.Command {
	outboxCmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and manage samples waiting for upload",
	}

	var statuses []string
	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List outbox items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.OutboxList(statuses)
				if err != nil {
					return err
				}
				if resp.Error != "" {
					return errors.New(resp.Error)
				}
				if listJSON {
					return writeJSON(cmd, resp.Items)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintln(stdout, "Outbox is empty")
					return nil
				}
				fmt.Fprint(stdout, renderOutboxTable(resp.Items, time.Now()))
				fmt.Fprintln(stdout)
				return nil
			})
		},
	}
	listCmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (pending, failed, delivered)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	retryCmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Requeue failed items (all failed items when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseItemIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.OutboxRetry(ids)
				if err != nil {
					return err
				}
				if resp.Error != "" {
					return errors.New(resp.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) requeued\n", resp.Updated)
				return nil
			})
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove delivered items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.OutboxPurge()
				if err != nil {
					return err
				}
				if resp.Error != "" {
					return errors.New(resp.Error)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d delivered item(s) removed\n", resp.Removed)
				return nil
			})
		},
	}

	outboxCmd.AddCommand(listCmd, retryCmd, purgeCmd)
	return outboxCmd
}

func parseItemIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func renderOutboxTable(items []ipc.OutboxItem, now time.Time) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		next := "-"
		if !item.NextAttemptAt.IsZero() && item.Status == "pending" {
			next = humanize.RelTime(item.NextAttemptAt, now, "ago", "from now")
		}
		size := "missing"
		if info, err := os.Stat(item.Path); err == nil {
			size = humanize.IBytes(uint64(info.Size()))
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			strconv.Itoa(item.Attempts),
			next,
			filepath.Base(item.Path),
			size,
			truncate(item.LastError, 48),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Attempts", "Next attempt", "File", "Size", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
