package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/cookmode/internal/domain"
)

var recipesCmd = &cobra.Command{
	Use:   "recipes [query]",
	Short: "List the available recipes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet = true
		a, err := setup(false)
		if err != nil {
			return err
		}
		defer a.close()

		var list []domain.RecipeSummary
		if len(args) == 1 {
			list, err = a.recipes.Search(cmd.Context(), args[0])
		} else {
			list, err = a.recipes.List(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No recipes found.")
			return nil
		}
		return printRecipes(cmd.OutOrStdout(), list)
	},
}

func printRecipes(w io.Writer, list []domain.RecipeSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSERVES\tSTEPS\tTAGS")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Title, r.Servings, r.Steps, strings.Join(r.Tags, ", "))
	}
	return tw.Flush()
}
