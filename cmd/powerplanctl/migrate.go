package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"powerplan/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{db.MigrateUp, db.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := db.MigrateUp
			if len(args) > 0 {
				direction = args[0]
			}

			dbCfg, err := loadDatabaseConfig(databaseURL)
			if err != nil {
				return err
			}

			migrator, err := db.NewMigrator(dbCfg.URL.Unmask(), cliLogger(cmd))
			if err != nil {
				return err
			}
			defer migrator.Close()

			changed, err := migrator.Run(direction)
			if err != nil {
				return err
			}
			version, dirty, err := migrator.Version()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(out, "no change, schema version %d\n", version)
				return nil
			}
			fmt.Fprintf(out, "migrated %s, schema version %d", direction, version)
			if dirty {
				fmt.Fprint(out, " (dirty)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	return cmd
}
