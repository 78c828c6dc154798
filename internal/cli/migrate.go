package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"Ystore/internal/config"
	"Ystore/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back SQL migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg := config.LoadConfig()
			if dir != "" {
				cfg.SQL.MigrationsDir = dir
			}
			url, err := migrationURL(cfg.SQL)
			if err != nil {
				return err
			}
			return db.Migrate(url, cfg.SQL.MigrationsDir, direction)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (overrides MIGRATIONS_DIR)")
	return cmd
}

func migrationURL(c config.SQLConfig) (string, error) {
	switch {
	case c.PostgresDSN != "":
		return c.PostgresDSN, nil
	case c.SQLitePath != "":
		return db.SQLiteURL(c.SQLitePath), nil
	}
	return "", errors.New("no SQL database configured: set POSTGRES_DSN or SQLITE_PATH")
}
