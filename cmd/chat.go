package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhisek/algotutor/internal/app"
	"github.com/abhisek/algotutor/internal/chatbot"
	"github.com/abhisek/algotutor/internal/ui/components"
)

const (
	defaultSessionID = "student_session_001"
	defaultUserID    = "student"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the tutor in the terminal (default command)",
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle through runChat -> isTUI -> chatCmd.
	chatCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	}
	addChatFlags(chatCmd)
}

func addChatFlags(c *cobra.Command) {
	c.Flags().Bool("plain", false, "Line-based chat instead of the full-screen UI")
	c.Flags().StringP("session", "s", defaultSessionID, "Session ID; reuse one to continue a conversation")
	c.Flags().String("user", defaultUserID, "User ID recorded with the session")
	c.Flags().Bool("no-welcome", false, "Skip the splash screen")
}

// isTUI reports whether cmd will take over the terminal.
func isTUI(cmd *cobra.Command) bool {
	if cmd != rootCmd && cmd != chatCmd {
		return false
	}
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		return false
	}
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()
	sessionID, _ := cmd.Flags().GetString("session")
	userID, _ := cmd.Flags().GetString("user")

	if !isTUI(cmd) {
		fmt.Println("Initializing AlgoTutor...")
	}
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if isTUI(cmd) {
		skip, _ := cmd.Flags().GetBool("no-welcome")
		return app.Run(app.Options{
			Tutor:       rt.tutor,
			SessionID:   sessionID,
			UserID:      userID,
			SkipWelcome: skip,
		})
	}

	var render func(string) string
	if isatty.IsTerminal(os.Stdout.Fd()) {
		md := &components.Markdown{}
		render = func(s string) string { return md.Render(s, 80) }
	}
	return plainLoop(ctx, chatbot.NewResponder(rt.tutor), os.Stdin, os.Stdout, sessionID, userID, render)
}

// plainLoop reads one message per line until EOF, "exit", "quit" or ctx
// is cancelled. render may be nil.
func plainLoop(ctx context.Context, r *chatbot.Responder, in io.Reader, out io.Writer, sessionID, userID string, render func(string) string) error {
	fmt.Fprintln(out, "\n--- AlgoTutor Ready ---")
	fmt.Fprintln(out, "Type 'exit' or 'quit' to stop.")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "\nYou: ")
		var line string
		select {
		case <-ctx.Done():
			// Stdin stays blocked in the reader goroutine; the process is
			// about to exit.
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nGoodbye!")
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, "Goodbye! Happy coding.")
			return nil
		}

		reply := r.Respond(ctx, sessionID, userID, line)
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}
		if render != nil {
			reply = render(reply)
		}
		fmt.Fprintf(out, "\n%s\n", reply)
	}
}
