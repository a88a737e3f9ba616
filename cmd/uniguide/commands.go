package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/config"
	"github.com/ArnabNath1/ArnabUniGuide/internal/storage"
)

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent profile changes made from this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		id, err := a.keeper.Current(ctx)
		if err != nil {
			return err
		}
		muts, err := a.store.ListMutations(ctx, id.Email, limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(muts) == 0 {
			fmt.Fprintln(w, "No changes recorded.")
			return nil
		}
		for _, m := range muts {
			status := m.Status
			switch m.Status {
			case storage.StatusCompleted:
				status = render(styles.Success, status)
			case storage.StatusFailed:
				status = render(styles.Error, status)
			}
			fmt.Fprintf(w, "%s  %-10s %s", render(styles.Muted, m.CreatedAt.Local().Format("2006-01-02 15:04:05")), m.Kind, status)
			if m.LastError != "" {
				fmt.Fprintf(w, "  %s", m.LastError)
			}
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s\n", render(styles.Muted, "# "+config.FilePath()))
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", render(styles.Bold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
