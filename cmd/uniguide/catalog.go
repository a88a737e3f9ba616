package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/catalog"
)

var universitiesCmd = &cobra.Command{
	Use:   "universities <query>",
	Short: "Search universities by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		unis, err := a.ws.Catalog.Universities(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(unis) == 0 {
			fmt.Fprintln(w, "No universities found.")
			return nil
		}
		p, _ := a.ws.Profile.Current()
		for _, u := range unis {
			mark := "  "
			if p.Shortlist.Contains(u.Name) {
				mark = render(styles.Success, "★ ")
			}
			fmt.Fprintf(w, "%s%s %s\n", mark, render(styles.Bold, u.Name), render(styles.Muted, u.Country))
			if site := u.Website(); site != "" {
				fmt.Fprintf(w, "    %s\n", site)
			}
		}
		if len(unis) == catalog.MaxUniversities {
			printStep("Showing the first %d matches; refine the query for more", catalog.MaxUniversities)
		}
		return nil
	},
}

var scholarshipsCmd = &cobra.Command{
	Use:   "scholarships [query]",
	Short: "Search scholarships",
	Long: `Search scholarships. Without a query, lists well-known international
scholarships.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		list, err := a.ws.Catalog.Scholarships(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(w, "No scholarships found.")
			return nil
		}
		for _, s := range list {
			fmt.Fprintln(w, render(styles.Bold, s.Title))
			if s.Amount != "" {
				printStatus(w, "Amount", "%s", s.Amount)
			}
			if s.Deadline != "" {
				printStatus(w, "Deadline", "%s", s.Deadline)
			}
			fmt.Fprintf(w, "  %s\n  %s\n\n", s.Summary(), render(styles.Step, s.URL()))
		}
		return nil
	},
}
