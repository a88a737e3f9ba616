package main

import (
	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/account"
	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
	"github.com/ArnabNath1/ArnabUniGuide/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in as a student",
	Long: `Sign in as a student. Every later command acts on this email's profile,
shortlist, checklist and chat sessions.

Examples:
  uniguide login ada@example.com
  uniguide login ada@example.com --token $UNIGUIDE_TOKEN`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := account.NewIdentity(args[0])
		if err != nil {
			return err
		}
		token, _ := cmd.Flags().GetString("token")
		if token != "" {
			if err := config.SetToken(token); err != nil {
				return err
			}
			printSuccess("Stored API token in the OS keyring")
		}

		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		if err := a.keeper.Login(ctx, id); err != nil {
			return err
		}
		printSuccess("Logged in as %s", id.Email)

		_, err = a.client.GetProfile(ctx, id.Email)
		switch {
		case err == nil:
		case apperr.IsNotFound(err):
			printStep("No profile yet. Run `uniguide profile onboard` to create one.")
		default:
			printWarning("Could not reach the backend: %v", err)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openStore()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.keeper.Logout(cmd.Context()); err != nil {
			return err
		}
		if forget, _ := cmd.Flags().GetBool("forget-token"); forget {
			if err := config.DeleteToken(); err != nil {
				printWarning("Could not remove API token: %v", err)
			}
		}
		printSuccess("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("token", "", "API bearer token to store in the OS keyring")
	logoutCmd.Flags().Bool("forget-token", false, "also remove the stored API token")
}
