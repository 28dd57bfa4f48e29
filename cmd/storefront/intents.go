package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bookstore/storefront/internal/db"
	"github.com/spf13/cobra"
)

func intentsCmd(g *globals) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "intents",
		Short: "List intents recorded while signed out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			filter := db.IntentStatus(status)
			if status == "all" {
				filter = ""
			}
			intents, err := a.intents.List(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			return printIntents(cmd.OutOrStdout(), intents)
		},
	}
	cmd.Flags().StringVar(&status, "status", string(db.IntentPending), "pending, applied, failed or all")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum intents to list (0 for no limit)")

	cmd.AddCommand(intentsPurgeCmd(g))
	return cmd
}

func intentsPurgeCmd(g *globals) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete applied intents older than a cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.intents.PurgeApplied(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d applied intents\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", purgeAfter, "Age of applied intents to delete")
	return cmd
}

func printIntents(out io.Writer, intents []db.PendingIntent) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tBOOK\tITEM\tQTY\tSTATUS\tCREATED\tERROR")
	for _, in := range intents {
		book := in.BookTitle
		if book == "" {
			book = fmt.Sprintf("#%d", in.BookID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			in.ID, in.Type, book, in.ItemID, in.Quantity, in.Status,
			in.CreatedAt.Format(time.RFC3339), in.Error)
	}
	return w.Flush()
}
