package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bookstore/storefront/internal/catalog"
	"github.com/bookstore/storefront/internal/model"
	"github.com/spf13/cobra"
)

type catalogFlags struct {
	category int64
	search   string
	sort     string
	minPrice float64
	maxPrice float64
	format   string
	json     bool
}

func catalogCmd(g *globals) *cobra.Command {
	f := &catalogFlags{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load the catalog and print the filtered, sorted book list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.newStore(nil)
			if _, err := st.RefreshBooks(cmd.Context()); err != nil {
				return err
			}
			st.UpdateFilters(f.patch(cmd))

			books := st.FilteredBooks()
			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(books)
			}
			return printBooks(cmd.OutOrStdout(), books)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&f.category, "category", 0, "Category id")
	flags.StringVarP(&f.search, "search", "s", "", "Match title, author or description")
	flags.StringVar(&f.sort, "sort", catalog.SortTitle, "Sort order (title, author, price_low, price_high, newest)")
	flags.Float64Var(&f.minPrice, "min-price", 0, "Lowest current price")
	flags.Float64Var(&f.maxPrice, "max-price", 100, "Highest current price")
	flags.StringVar(&f.format, "format", catalog.FormatAll, "Book format, or all")
	flags.BoolVar(&f.json, "json", false, "Print JSON instead of a table")
	return cmd
}

// patch turns the flags the user set into a filter patch.
func (f *catalogFlags) patch(cmd *cobra.Command) catalog.FilterPatch {
	p := catalog.FilterPatch{
		SearchQuery: &f.search,
		SortBy:      &f.sort,
		PriceRange:  &catalog.PriceRange{f.minPrice, f.maxPrice},
		Format:      &f.format,
	}
	if cmd.Flags().Changed("category") {
		p.Category = &f.category
	}
	return p
}

func printBooks(out io.Writer, books []model.Book) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tFORMAT\tPRICE\tRATING")
	for _, b := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%.1f\n", b.ID, b.Title, b.Author, b.Format, b.CurrentPrice(), b.AverageRating)
	}
	return w.Flush()
}
