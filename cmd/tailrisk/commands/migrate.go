package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wonny/tailrisk/migrations"
	"github.com/wonny/tailrisk/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 적용",
	Long: `내장된 migrations/*.sql 을 이름 순으로 적용합니다 (idempotent).

Example:
  DATABASE_URL=postgres://... go run ./cmd/tailrisk migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db.Pool, migrations.FS)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range applied {
		PrintSuccess(out, "applied "+name)
	}
	zl := log.Zerolog()
	zl.Info().Int("files", len(applied)).Msg("Migrations applied")
	return nil
}
