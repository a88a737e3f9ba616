package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	// noColor disables styling; set for non-terminal stdout, NO_COLOR or --no-color.
	noColor bool
	verbose bool
	// logLevel starts at warn and is raised or lowered once config is loaded.
	logLevel slog.LevelVar
)

var rootCmd = &cobra.Command{
	Use:   "uniguide",
	Short: "Study-abroad profile, shortlist, checklist and AI counsellor",
	Long: `uniguide keeps your study-abroad profile in sync with the UniGuide backend,
builds an application checklist for your shortlisted universities and lets you
chat with the AI counsellor.

Start with:
  uniguide login you@example.com
  uniguide profile onboard --cv ./cv.pdf`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flagNoColor, _ := cmd.Flags().GetBool("no-color")
		noColor = flagNoColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd())
		verbose, _ = cmd.Flags().GetBool("verbose")
		setupLogging()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "uniguide %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(shortlistCmd)
	rootCmd.AddCommand(checklistCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(universitiesCmd)
	rootCmd.AddCommand(scholarshipsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
}

// setupLogging installs a text handler on stderr. The level comes from
// log.level unless --verbose forces debug.
func setupLogging() {
	logLevel.Set(slog.LevelWarn)
	if verbose {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel})))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
