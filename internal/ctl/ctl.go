// Package ctl implements the flakectl subcommands.
package ctl

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhukov-alex/flakeid/internal/client"
	"github.com/zhukov-alex/flakeid/internal/snowflake"
	"github.com/zhukov-alex/flakeid/internal/wire"
)

// DefaultEpochMillis is 2010-11-04T01:42:54.657Z.
const DefaultEpochMillis int64 = 1288834974657

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "flakectl",
		Short:         "Generate, decode and fetch snowflake ids",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCmd(), newDecodeCmd(), newFetchCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var (
		count        int
		workerID     uint32
		dataCenterID uint32
		epoch        int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate ids locally, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("-n must be >= 1")
			}
			gen, err := snowflake.New(workerID, dataCenterID, epoch)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				id, err := gen.NextID()
				if err != nil {
					return fmt.Errorf("generate id %d: %w", i, err)
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of ids to generate")
	cmd.Flags().Uint32Var(&workerID, "worker", 0, "Worker id (0-31)")
	cmd.Flags().Uint32Var(&dataCenterID, "datacenter", 0, "Data center id (0-31)")
	cmd.Flags().Int64Var(&epoch, "epoch", DefaultEpochMillis, "Custom epoch in unix milliseconds")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var epoch int64

	cmd := &cobra.Command{
		Use:   "decode <id>...",
		Short: "Print the fields of ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				id, err := strconv.ParseUint(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				p := snowflake.Decompose(id)
				fmt.Fprintf(out, "id=%d time=%s timestamp=%d datacenter=%d worker=%d sequence=%d\n",
					id,
					p.Time(epoch).UTC().Format(time.RFC3339Nano),
					p.Timestamp,
					p.DataCenterID,
					p.WorkerID,
					p.Sequence,
				)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&epoch, "epoch", DefaultEpochMillis, "Custom epoch in unix milliseconds")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		count   uint32
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch ids from a running flakeid TCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 || count > wire.MaxCount {
				return fmt.Errorf("-n must be between 1 and %d", wire.MaxCount)
			}

			c, err := client.Dial(addr, timeout)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ids, err := c.Fetch(ctx, count)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().Uint32VarP(&count, "count", "n", 1, "Number of ids to fetch")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7000", "Server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Dial and request timeout")
	return cmd
}
