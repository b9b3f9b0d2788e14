package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"kubeask/internal/agent"
	"kubeask/internal/api"
)

const defaultServerURL = "http://localhost:8080"

var (
	askServer      string
	askSession     string
	askInteractive bool
	askRaw         bool
	askTimeout     time.Duration
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a running kubeask server a question",
	Long: `Sends a question to a kubeask server and prints the answer.

Each answer belongs to a session. Pass --session to continue an earlier
conversation, or use -i for an interactive prompt that keeps the session
between questions.

Interactive commands:
  /new      start a new session
  /session  print the current session id
  exit      leave the prompt

Examples:
  kubeask ask "why is the checkout deployment not ready?"
  kubeask ask --session 3f0c... "and what do its logs say?"
  kubeask ask -i`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	client := newAskClient(askServer, askTimeout)
	render := newAnswerRenderer(askRaw)

	if askInteractive {
		return runAskREPL(cmd.Context(), client, render, askSession, cmd.OutOrStdout(), cmd.ErrOrStderr())
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return errors.New("a question is required (or use -i for interactive mode)")
	}

	sessionID, err := askOnce(cmd.Context(), client, query, askSession, render, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if sessionID != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), text.FgHiBlack.Sprintf("session: %s (continue with --session %s)", sessionID, sessionID))
	}
	return err
}

// askOnce sends one question and prints the rendered answer. It returns the
// session the server used, which is also known for most failures.
func askOnce(ctx context.Context, client *askClient, query, sessionID string, render func(string) string, out, errOut io.Writer) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errOut))
	s.Suffix = " Thinking..."
	s.Start()

	onTool := func(e agent.Event) {
		s.Lock()
		defer s.Unlock()
		switch e.Type {
		case agent.EventToolStarted:
			s.Suffix = fmt.Sprintf(" Running %s...", e.ToolName)
		case agent.EventToolFinished:
			s.Suffix = " Thinking..."
		}
	}

	resp, err := client.Ask(ctx, query, sessionID, onTool)
	s.Stop()

	if err != nil {
		if ctx.Err() != nil && sessionID != "" {
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Cancel(cancelCtx, sessionID)
		}
		fmt.Fprintln(errOut, text.FgRed.Sprint(describeAskError(err)))
		var remote *remoteError
		if errors.As(err, &remote) && remote.SessionID != "" {
			return remote.SessionID, err
		}
		return sessionID, err
	}

	fmt.Fprint(out, render(resp.Response))
	return resp.SessionID, nil
}

func describeAskError(err error) string {
	var remote *remoteError
	if errors.As(err, &remote) {
		switch remote.Body.Kind {
		case api.KindStepBudgetExceeded:
			return "The agent ran out of tool rounds before reaching an answer. " + remote.Body.Message
		case api.KindSessionBusy:
			return "That session is still answering another question. Wait for it or cancel it."
		case api.KindNotFound:
			return "Unknown or expired session: " + remote.Body.Message
		}
		return fmt.Sprintf("Error (%s): %s", remote.Body.Kind, remote.Body.Message)
	}
	var fault *api.TransportFault
	if errors.As(err, &fault) {
		return fmt.Sprintf("Could not reach the kubeask server at %s: %v", askServer, fault.Err)
	}
	return "Error: " + err.Error()
}

func runAskREPL(ctx context.Context, client *askClient, render func(string) string, sessionID string, out, errOut io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            text.FgHiCyan.Sprint("kubeask> "),
		HistoryFile:       historyFile(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start interactive prompt: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(out, "Ask about your cluster. Type 'exit' or press Ctrl+D to leave.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/new":
			sessionID = ""
			fmt.Fprintln(out, "Started a new session.")
			continue
		case "/session":
			if sessionID == "" {
				fmt.Fprintln(out, "No session yet.")
			} else {
				fmt.Fprintln(out, sessionID)
			}
			continue
		}

		if id, _ := askOnce(ctx, client, line, sessionID, render, out, errOut); id != "" {
			sessionID = id
		}
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "kubeask", "history")
}

// newAnswerRenderer renders answers as terminal markdown unless raw is set.
func newAnswerRenderer(raw bool) func(string) string {
	plain := func(s string) string {
		if strings.HasSuffix(s, "\n") {
			return s
		}
		return s + "\n"
	}
	if raw {
		return plain
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return plain
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return plain(s)
		}
		return rendered
	}
}

func init() {
	rootCmd.AddCommand(askCmd)

	server := os.Getenv("KUBEASK_SERVER")
	if server == "" {
		server = defaultServerURL
	}
	askCmd.Flags().StringVar(&askServer, "server", server, "kubeask server URL (env KUBEASK_SERVER)")
	askCmd.Flags().StringVar(&askSession, "session", "", "Continue an existing session")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "Start an interactive prompt")
	askCmd.Flags().BoolVar(&askRaw, "raw", false, "Print the answer without markdown rendering")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 10*time.Minute, "Maximum time to wait for an answer")
}
