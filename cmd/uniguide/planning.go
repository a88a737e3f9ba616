package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/checklist"
)

// --- shortlist ---

var shortlistCmd = &cobra.Command{
	Use:   "shortlist",
	Short: "Show or change the university shortlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.requireOnboarded(); err != nil {
			return err
		}

		p, _ := a.ws.Profile.Current()
		if p.Shortlist.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No universities shortlisted.")
			return nil
		}
		for i, name := range p.Shortlist.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, name)
		}
		return nil
	},
}

var shortlistToggleCmd = &cobra.Command{
	Use:   "toggle <university>",
	Short: "Add a university, or remove it if already shortlisted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		name := strings.Join(args, " ")
		added, err := a.ws.ToggleShortlist(ctx, name)
		if err != nil {
			return err
		}
		if added {
			printSuccess("Added %s to the shortlist", name)
		} else {
			printSuccess("Removed %s from the shortlist", name)
		}
		return nil
	},
}

func init() {
	shortlistCmd.AddCommand(shortlistToggleCmd)
}

// --- checklist ---

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Show the application checklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.requireOnboarded(); err != nil {
			return err
		}

		cl := a.ws.Checklist.View()
		if cl.IsEmpty() {
			fmt.Fprintln(cmd.OutOrStdout(), "No checklist yet. Run `uniguide checklist generate`.")
			return nil
		}
		writeChecklist(cmd, cl)
		return nil
	},
}

func writeChecklist(cmd *cobra.Command, cl checklist.Checklist) {
	w := cmd.OutOrStdout()
	done, total := cl.Progress()
	fmt.Fprintf(w, "%s %s\n", render(styles.Title, "Checklist"), render(styles.Muted, fmt.Sprintf("(%d/%d done)", done, total)))
	for _, key := range cl.Keys() {
		tasks, _ := cl.Tasks(key)
		fmt.Fprintf(w, "\n%s\n", render(styles.Bold, key))
		for i, t := range tasks {
			fmt.Fprintf(w, "  %2d %s %s\n", i+1, checkbox(t.Completed), t.Label)
			if t.Details != "" {
				fmt.Fprintf(w, "       %s\n", render(styles.Muted, t.Details))
			}
		}
	}
}

var checklistGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the checklist for your shortlist",
	Long: `Generate the application checklist. Universities default to the shortlist
and the country to the profile's target country. Tasks you already completed
stay completed when their wording is unchanged.

Examples:
  uniguide checklist generate
  uniguide checklist generate --university MIT --university "ETH Zurich" --country USA`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		unis, _ := cmd.Flags().GetStringArray("university")
		country, _ := cmd.Flags().GetString("country")
		printStep("Generating checklist")
		cl, err := a.ws.GenerateChecklist(ctx, unis, country)
		if err != nil {
			return err
		}
		writeChecklist(cmd, cl)
		return nil
	},
}

var checklistToggleCmd = &cobra.Command{
	Use:   "toggle <university> <task-number>",
	Short: "Mark a task done or not done",
	Long: `Mark a task done or not done. Task numbers are as shown by
` + "`uniguide checklist`" + `, starting at 1.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid task number %q", args[1])
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		done, err := a.ws.ToggleTask(ctx, args[0], n-1)
		if err != nil {
			return err
		}
		state := "not done"
		if done {
			state = "done"
		}
		printSuccess("%s task %d marked %s", args[0], n, state)
		return nil
	},
}

func init() {
	checklistGenerateCmd.Flags().StringArray("university", nil, "university to plan for (repeatable)")
	checklistGenerateCmd.Flags().String("country", "", "target country")
	checklistCmd.AddCommand(checklistGenerateCmd)
	checklistCmd.AddCommand(checklistToggleCmd)
}
