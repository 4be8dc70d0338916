package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"laborbook/migrations"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				return applyMigrations(cmd.Context(), cmd, pool)
			})
		},
	}
}

func applyMigrations(ctx context.Context, cmd *cobra.Command, pool *pgxpool.Pool) error {
	applied, err := migrations.Apply(ctx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(applied) == 0 {
		fmt.Fprintln(out, "Schema up to date")
		return nil
	}
	for _, version := range applied {
		fmt.Fprintf(out, "Applied %s\n", version)
	}
	return nil
}
