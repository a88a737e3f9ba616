package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your student profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved profile",
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

		p, err := a.ws.Profile.Get(ctx)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		}
		writeProfile(cmd.OutOrStdout(), p)
		return nil
	},
}

func writeProfile(w io.Writer, p profile.Profile) {
	fmt.Fprintln(w, render(styles.Title, "Profile"))
	for _, f := range profile.Fields() {
		v := f.Get(p)
		if v == "" {
			v = render(styles.Muted, "-")
		}
		printStatus(w, f.Label, "%s", v)
	}

	var scores []string
	for _, f := range profile.ScoreFields() {
		if v := f.Get(p.TestScores); v != "" {
			scores = append(scores, f.Label+" "+v)
		}
	}
	if len(scores) > 0 {
		printStatus(w, "Test scores", "%s", strings.Join(scores, ", "))
	}
	if p.Shortlist.Len() > 0 {
		printStatus(w, "Shortlist", "%s", p.Shortlist.String())
	}
	if !p.Checklist.IsEmpty() {
		done, total := p.Checklist.Progress()
		printStatus(w, "Checklist", "%d/%d tasks done", done, total)
	}
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field",
	Long: `Set a profile field and save the profile.

Fields: ` + strings.Join(profile.SettableNames(), ", ") + `

Examples:
  uniguide profile set gpa 3.8
  uniguide profile set test_scores.ielts 7.5
  uniguide profile set budget ""`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.ws.SetField(ctx, args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var profileOnboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create your profile, optionally from a CV",
	Long: `Create your profile. Fields come from the CV (if given), then --set flags,
then interactive prompts for anything still missing.

Examples:
  uniguide profile onboard --cv ./cv.pdf
  uniguide profile onboard --set name=Ada --set target_country=UK --set budget="30000 GBP"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.ws.Onboarded() {
			return errors.New("profile already exists; use `uniguide profile set` or `uniguide profile import`")
		}

		draft := a.ws.Draft()
		if cv, _ := cmd.Flags().GetString("cv"); cv != "" {
			printStep("Reading %s", cv)
			merged, found, err := a.ws.ImportDocument(ctx, cv, draft, profile.Aggressive)
			if err != nil {
				return err
			}
			draft = merged
			printSuccess("Found %d fields: %s", len(found), strings.Join(found, ", "))
		}
		sets, _ := cmd.Flags().GetStringArray("set")
		if err := applySets(&draft, sets); err != nil {
			return err
		}

		saved, err := a.ws.Onboard(ctx, draft)
		var verr *apperr.ValidationError
		for errors.As(err, &verr) && len(verr.Fields) > 0 && interactive() {
			if perr := promptFields(&draft, verr.Fields); perr != nil {
				return perr
			}
			saved, err = a.ws.Onboard(ctx, draft)
		}
		if err != nil {
			return err
		}
		printSuccess("Profile created for %s", saved.Email)
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <cv.pdf>",
	Short: "Update the profile from a CV",
	Long: `Update the profile from a CV. By default only fields the CV fills in are
changed; --overwrite also applies fields the CV leaves empty.`,
	Args: cobra.ExactArgs(1),
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

		strategy := profile.Conservative
		if overwrite, _ := cmd.Flags().GetBool("overwrite"); overwrite {
			strategy = profile.Aggressive
		}
		before := a.ws.Draft()
		merged, _, err := a.ws.ImportDocument(ctx, args[0], before, strategy)
		if err != nil {
			return err
		}

		changed := writeChanges(cmd.OutOrStdout(), before, merged)
		if changed == 0 {
			printSuccess("Nothing to update")
			return nil
		}
		if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
			printStep("Dry run: %d fields not saved", changed)
			return nil
		}
		if _, err := a.ws.Profile.Save(ctx, merged); err != nil {
			return err
		}
		printSuccess("Updated %d fields", changed)
		return nil
	},
}

// writeChanges prints each field that differs between before and after and
// returns how many did.
func writeChanges(w io.Writer, before, after profile.Profile) int {
	n := 0
	show := func(label, was, now string) {
		if was == now {
			return
		}
		n++
		if was == "" {
			was = "-"
		}
		if now == "" {
			now = "-"
		}
		fmt.Fprintf(w, "  %s %s → %s\n", render(styles.Bold, label+":"), render(styles.Muted, was), now)
	}
	for _, f := range profile.Fields() {
		show(f.Label, f.Get(before), f.Get(after))
	}
	for _, f := range profile.ScoreFields() {
		show(f.Label, f.Get(before.TestScores), f.Get(after.TestScores))
	}
	return n
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete your account and all its data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		ticket := a.ws.RequestDeletion()
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if !interactive() {
				return errors.New("refusing to delete without --yes when not running in a terminal")
			}
			ok, err := confirm(
				fmt.Sprintf("Delete the account %s?", a.ws.ID.Email),
				"This removes your profile, shortlist, checklist and chat history. It cannot be undone.",
			)
			if err != nil {
				return err
			}
			if !ok {
				printWarning("Deletion cancelled")
				return nil
			}
		}

		if err := a.ws.DeleteAccount(ctx, ticket); err != nil {
			return err
		}
		printSuccess("Account %s deleted", a.ws.ID.Email)
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "print the profile as JSON")
	profileOnboardCmd.Flags().String("cv", "", "PDF CV to prefill the profile from")
	profileOnboardCmd.Flags().StringArray("set", nil, "field=value to set (repeatable)")
	profileImportCmd.Flags().Bool("overwrite", false, "also clear fields the CV leaves empty")
	profileImportCmd.Flags().Bool("dry-run", false, "show the changes without saving")
	profileDeleteCmd.Flags().Bool("yes", false, "skip the confirmation prompt")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileOnboardCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileDeleteCmd)
}

// applySets applies field=value pairs to p.
func applySets(p *profile.Profile, sets []string) error {
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q: want field=value", kv)
		}
		if !profile.SetByName(p, name, value) {
			return fmt.Errorf("unknown field %q; settable fields: %s", name, strings.Join(profile.SettableNames(), ", "))
		}
	}
	return nil
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// promptFields asks for each named field in one form.
func promptFields(p *profile.Profile, names []string) error {
	labels := make(map[string]string)
	for _, f := range profile.Fields() {
		labels[f.Name] = f.Label
	}

	values := make([]string, len(names))
	inputs := make([]huh.Field, 0, len(names))
	for i, name := range names {
		label, ok := labels[name]
		if !ok {
			label = name
		}
		inputs = append(inputs, huh.NewInput().
			Title(label).
			Value(&values[i]).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("required")
				}
				return nil
			}))
	}
	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return err
	}
	for i, name := range names {
		profile.SetByName(p, name, strings.TrimSpace(values[i]))
	}
	return nil
}

func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Delete").
			Negative("Cancel").
			Value(&ok),
	)).Run()
	return ok, err
}
