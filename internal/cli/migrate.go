package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if err := a.migrator.Up(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
				return err
			}
			a.logger.Info("Migrations applied", "path", cfg.Postgres.MigrationsPath)
			fmt.Fprintln(a.out, "Schema is up to date")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			state, err := a.migrator.Status(cfg.Postgres.URL, cfg.Postgres.MigrationsPath)
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return a.render(state, nil)
			}
			if state.Version == 0 {
				fmt.Fprintln(a.out, "No migrations applied")
				return nil
			}
			fmt.Fprintf(a.out, "Version %d", state.Version)
			if state.Dirty {
				fmt.Fprint(a.out, " (dirty)")
			}
			fmt.Fprintln(a.out)
			return nil
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}
