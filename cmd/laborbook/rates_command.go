package main

import (
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"laborbook/wage"
)

func newRatesCommand(ctx *commandContext) *cobra.Command {
	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "Inspect or update the statutory wage floor",
	}

	ratesCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current minimum hourly wage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				rates, err := wage.NewRatesStore(pool).Get(cmd.Context())
				if err != nil {
					return err
				}
				printRates(cmd, rates)
				return nil
			})
		},
	})

	ratesCmd.AddCommand(&cobra.Command{
		Use:   "set <min-wage-per-hour>",
		Short: "Update the minimum hourly wage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil || value <= 0 {
				return fmt.Errorf("invalid wage %q: must be a positive number", args[0])
			}
			return ctx.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				rates, err := wage.NewRatesStore(pool).Set(cmd.Context(), value)
				if err != nil {
					return err
				}
				printRates(cmd, rates)
				return nil
			})
		},
	})

	return ratesCmd
}

func printRates(cmd *cobra.Command, rates wage.Rates) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Minimum wage per hour: %.2f\n", rates.MinWagePerHour)
	if !rates.LastUpdated.IsZero() {
		fmt.Fprintf(out, "Last updated:          %s\n", rates.LastUpdated.Format("2006-01-02 15:04:05"))
	}
}
