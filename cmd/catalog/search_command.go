package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"videofinder-bot/internal/match"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <terms>",
		Short: "Show how the bot would group a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			plan, err := match.NewEngine(store, ctx.log.Logger).Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}

func printPlan(out io.Writer, plan *match.Plan) {
	if plan.NoResults() {
		fmt.Fprintln(out, "No files found with that keyword.")
		return
	}
	rows := make([][]string, 0, len(plan.Groups))
	for _, g := range plan.Groups {
		ids := make([]string, 0, len(g.MessageIDs))
		for _, id := range g.MessageIDs {
			ids = append(ids, strconv.Itoa(id))
		}
		bulk := "no"
		if g.SupportsBulk {
			bulk = "yes"
		}
		rows = append(rows, []string{g.Key, strconv.Itoa(g.Representative), strconv.Itoa(len(g.MessageIDs)), bulk, strings.Join(ids, ",")})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "First", "Files", "Bulk", "Messages"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}
