package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/freelanceops/billing/internal/api/dto"
	billingapp "github.com/freelanceops/billing/internal/app"
	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/db"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/scheduler"
	"github.com/freelanceops/billing/internal/security"
	"github.com/freelanceops/billing/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const startTimeout = 30 * time.Second

// NewRootCmd creates the operator command. Subcommands share the server's configuration.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "billingctl",
		Short:        "Operate the billing engine from the command line",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newTickCmd(),
		newLateFeesCmd(),
		newKeygenCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log, err := logger.NewLogger(cfg)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}

			// migrate explicitly so failures surface here and not from NewDB
			cfg.Database.AutoMigrate = false
			database, err := db.NewDB(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTickCmd() *cobra.Command {
	var (
		asOf string
		fast bool
	)

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dto.AsOfRequest{AsOf: asOf}.Date()
			if err != nil {
				return err
			}

			var sched *scheduler.Scheduler
			return withApp(cmd.Context(), fx.Populate(&sched), func(ctx context.Context) error {
				resp, err := sched.Run(ctx, day, fast)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Day to run for (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&fast, "fast", false, "Only send reminders and retry webhooks")
	return cmd
}

func newLateFeesCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "late-fees",
		Short: "Assess late fees on overdue invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dto.AsOfRequest{AsOf: asOf}.Date()
			if err != nil {
				return err
			}

			var lateFees service.LateFeeService
			return withApp(cmd.Context(), fx.Populate(&lateFees), func(ctx context.Context) error {
				resp, err := lateFees.ProcessLateFees(ctx, day)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "Day to assess for (YYYY-MM-DD, default today)")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a random master key for secrets.encryption_key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := security.GenerateRandomKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

// withApp starts the service graph without the API server, runs fn and stops the graph
func withApp(ctx context.Context, populate fx.Option, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	app := fx.New(billingapp.Module, populate, fx.NopLogger)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), startTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
