package main

import (
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"laborbook/posting"
	"laborbook/week"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire open postings whose expiry has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			return ctx.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				repo := posting.NewRepository(pool, cfg.Location())
				ids, err := posting.NewSweeper(repo, 0, logger).RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %d posting(s)\n", len(ids))
				for _, id := range ids {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
				}
				return nil
			})
		},
	}
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the open job feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			cfg, _ := ctx.ensureConfig()
			return ctx.withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				feed := posting.NewFeed(posting.NewRepository(pool, cfg.Location()), logger)
				items, err := feed.OpenJobs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No open jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFeed(items))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderFeed(items []posting.Listing) string {
	rows := make([][]string, 0, len(items))
	for _, l := range items {
		rows = append(rows, []string{
			l.ID,
			l.Title,
			l.Location,
			l.RequiredDate.Format(week.DateLayout),
			strconv.FormatFloat(l.DurationHours, 'f', -1, 64),
			fmt.Sprintf("%.2f/%s", l.WageAmount, l.WageType),
			fmt.Sprintf("%d/%d", l.LaborersApplied, l.LaborersRequired),
			l.ExpiresAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Location", "Date", "Hours", "Wage", "Filled", "Expires"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	)
}
