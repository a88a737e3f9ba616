package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ArnabNath1/ArnabUniGuide/internal/session"
	"github.com/ArnabNath1/ArnabUniGuide/internal/workspace"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the AI counsellor",
	Long: `Talk to the AI counsellor. With a message, sends it and prints the reply.
Without one, starts an interactive conversation.

Commands inside the conversation:
  /new            start a new conversation
  /sessions       list past conversations
  /load <id>      continue a past conversation
  /quit           leave

Examples:
  uniguide chat "Which German universities fit my profile?"
  uniguide chat --session 42 "And what about scholarships?"
  uniguide chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if id, _ := cmd.Flags().GetString("session"); id != "" {
			if _, err := a.ws.Sessions.LoadSession(ctx, id); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if len(args) > 0 {
			reply, err := a.ws.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(w, reply.Response)
			printStep("session %s", reply.SessionID)
			return nil
		}
		return chatLoop(cmd, a.ws)
	},
}

// chatLoop reads one message per line until EOF or /quit.
func chatLoop(cmd *cobra.Command, ws *workspace.Workspace) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	writeTranscript(w, ws.Sessions.Transcript())

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(w, render(styles.User, "you> "))
		if !in.Scan() {
			fmt.Fprintln(w)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		cmdName, arg, _ := strings.Cut(line, " ")

		switch cmdName {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			ws.Sessions.StartNewChat()
			writeTranscript(w, ws.Sessions.Transcript())
		case "/sessions":
			list, err := ws.Sessions.ListSessions(ctx)
			if err != nil {
				printError("%v", err)
				continue
			}
			writeSessions(w, list)
		case "/load":
			msgs, err := ws.Sessions.LoadSession(ctx, arg)
			if err != nil {
				printError("%v", err)
				continue
			}
			writeTranscript(w, msgs)
		default:
			reply, err := ws.Send(ctx, line)
			if err != nil {
				printWarning("%v", err)
				msgs := ws.Sessions.Transcript()
				writeTranscript(w, msgs[len(msgs)-1:])
				continue
			}
			writeTranscript(w, []session.Message{{Role: session.RoleAssistant, Content: reply.Response}})
		}
	}
}

func writeTranscript(w io.Writer, msgs []session.Message) {
	for _, m := range msgs {
		who := render(styles.Bot, "counsellor>")
		if m.Role == session.RoleUser {
			who = render(styles.User, "you>")
		}
		fmt.Fprintf(w, "%s %s\n", who, m.Content)
	}
}

func writeSessions(w io.Writer, list []session.ChatSession) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	for _, s := range list {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", render(styles.Step, s.ID), render(styles.Muted, created), s.Title)
	}
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List past conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		list, err := a.ws.Sessions.ListSessions(ctx)
		if err != nil {
			return err
		}
		writeSessions(cmd.OutOrStdout(), list)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a past conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		msgs, err := a.ws.Sessions.LoadSession(ctx, args[0])
		if err != nil {
			return err
		}
		writeTranscript(cmd.OutOrStdout(), msgs)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("session", "", "continue the conversation with this id")
	sessionsCmd.AddCommand(sessionsShowCmd)
}
