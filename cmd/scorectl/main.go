// Command scorectl is the operator CLI for the match pipeline.
//
// Usage:
//
//	scorectl fetch 74648
//	scorectl fetch 74648 --refresh
//	scorectl current
//	scorectl watch
//	scorectl migrate up
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	sonic "github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/riskibarqy/cricket-scoreboard/internal/app"
	"github.com/riskibarqy/cricket-scoreboard/internal/config"
	"github.com/riskibarqy/cricket-scoreboard/internal/platform/logging"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env.local", ".env")

	root := &cobra.Command{
		Use:           "scorectl",
		Short:         "Inspect and drive the cricket match pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log at debug level")

	root.AddCommand(fetchCmd())
	root.AddCommand(currentCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func fetchCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "fetch <match-id>",
		Short: "Fetch one match and print the normalized document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core, _ config.Config, _ *logging.Logger) error {
				load := core.Matches.GetMatch
				if refresh {
					load = core.Matches.RefreshMatch
				}
				item, err := load(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass caches and the stored copy")
	return cmd
}

func currentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Resolve the pointer document and print the current match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core, _ config.Config, _ *logging.Logger) error {
				item, err := core.Matches.CurrentMatch(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), item)
			})
		},
	}
}

func watchCmd() *cobra.Command {
	var pointerOnly bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the live poller until interrupted",
		Long:  "Run the live poller in the foreground. With --pointer-only, print pointer changes instead of polling.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core, cfg config.Config, logger *logging.Logger) error {
				if pointerOnly {
					return watchPointer(ctx, cmd.OutOrStdout(), core)
				}

				cfg.LivePollEnabled = true
				poller := app.NewLivePoller(cfg, core, logger)
				logger.Info("watching current match", "live_interval", cfg.LivePollInterval.String(), "idle_interval", cfg.IdlePollInterval.String())
				poller.Run(ctx)

				status := poller.Status()
				logger.Info("watch stopped", "match_id", status.MatchID, "refreshes", status.Refreshes, "last_error", status.LastError)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pointerOnly, "pointer-only", false, "only print pointer changes")
	return cmd
}

func watchPointer(ctx context.Context, out io.Writer, core *app.Core) error {
	events, err := core.Matches.WatchCurrentMatchID(ctx)
	if err != nil {
		return err
	}
	for event := range events {
		if event.Err != nil {
			return event.Err
		}
		fmt.Fprintln(out, event.MatchID)
	}
	return nil
}

func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *app.Core, cfg config.Config, logger *logging.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := logging.ParseLevel("info")
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = logging.ParseLevel("debug")
	}
	logger := logging.NewConsole(level)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := core.Close(); closeErr != nil {
			logger.Warn("close stores failed", "error", closeErr)
		}
	}()

	return fn(ctx, core, cfg, logger)
}

func printJSON(out io.Writer, v any) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}
