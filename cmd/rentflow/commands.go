package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"rentflow/internal/config"
	"rentflow/internal/database"
	"rentflow/internal/events"
	"rentflow/internal/policy"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rentflow",
		Short:         "Property rental back office",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(),
		seedCmd(),
		exportInventoryCmd(),
		eventsCmd(),
		checkCmd(),
	)
	return root
}

// withApp loads config, builds the app and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.db == nil {
					return errors.New("migrate needs DB_ENABLED=true")
				}
				applied, err := database.Migrate(ctx, a.db)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
					return nil
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", name)
				}
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo users, property, apartments, appointment and message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.seeder().Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "users=%d properties=%d apartments=%d appointments=%d messages=%d\n",
					res.Users, res.Properties, res.Apartments, res.Appointments, res.Messages)
				return nil
			})
		},
	}
}

func exportInventoryCmd() *cobra.Command {
	var out, as string
	cmd := &cobra.Command{
		Use:   "export-inventory",
		Short: "Write every apartment to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				user, err := a.portal.Identity.FindByEmail(ctx, as)
				if err != nil {
					return fmt.Errorf("unknown user %s: %w", as, err)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := a.portal.ExportInventory(ctx, policy.Caller{UserID: user.ID, Role: user.Role}, f); err != nil {
					f.Close()
					_ = os.Remove(out)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "inventory.xlsx", "output file")
	cmd.Flags().StringVar(&as, "as", "", "email of the exporting Owner or Manager")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func eventsCmd() *cobra.Command {
	var count int64
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the most recent events from the Redis stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if a.redis == nil {
					return errors.New("events needs EVENTS_ENABLED=true")
				}
				recent, err := events.NewRedisStreamPublisher(a.redis, a.cfg.Events.Stream).ReadRecent(ctx, count)
				if err != nil {
					return err
				}
				for _, ev := range recent {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %-26s %d\n", ev.OccurredAt.Format(time.RFC3339), ev.Type, ev.EntityID)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64VarP(&count, "count", "n", 20, "number of events")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify connectivity to the configured database and event sinks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()

				var failed []error
				report := func(name string, err error) {
					if err != nil {
						failed = append(failed, fmt.Errorf("%s: %w", name, err))
						fmt.Fprintf(cmd.OutOrStdout(), "%-10s FAIL %v\n", name, err)
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s ok\n", name)
				}

				if a.db != nil {
					report("postgres", a.db.PingContext(ctx))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%-10s disabled (memory store)\n", "postgres")
				}
				if a.redis != nil {
					report("redis", a.redis.Ping(ctx).Err())
				}
				if a.cfg.MQTT.Enabled {
					if a.mqtt == nil {
						report("mqtt", errors.New("not connected"))
					} else {
						report("mqtt", nil)
					}
				}
				return errors.Join(failed...)
			})
		},
	}
}
