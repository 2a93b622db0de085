package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/api"
	"github.com/iksnae/modelchat/internal/chat"
	"github.com/spf13/cobra"
)

var chatArchive bool

const chatHelp = `Commands:
  /new               start a new session
  /list              list sessions (* marks the active one)
  /switch <n|id>     make a session active
  /delete [n|id]     delete a session (default: the active one)
  /clear             clear the active session's history
  /history           print the active session's transcript
  /prompt [text]     show or replace the system prompt
  /help              show this help
  /quit, /exit       leave

Anything else is sent to the active session. Ctrl-C cancels a pending reply.`

// chatCmd runs the interactive client
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the backend.

Existing sessions are loaded from the backend; the most recent one becomes
active. Lines starting with '/' are commands, see /help.

` + chatHelp,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}

		opts := []chat.Option{chat.WithNotifier(newTerminalNotifier(cmd.ErrOrStderr()))}
		if chatArchive {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()
			opts = append(opts, chat.WithArchive(archive))
			internal.LogInfo("archiving sessions to %s", archive.Path())
		}

		ctrl := chat.New(internal.NewStore(), client, opts...)
		r := &repl{ctrl: ctrl, prompts: client, out: cmd.OutOrStdout(), loginURL: client.LoginURL()}

		outcome := ctrl.Bootstrap(cmd.Context())
		switch outcome.Kind {
		case chat.AuthRequired:
			return requestError(client, outcome.Err)
		case chat.Failed:
			fmt.Fprintln(r.out, warningStyle.Render("Could not load sessions: "+outcome.Message))
		}

		return r.run(cmd.Context(), cmd.InOrStdin())
	},
}

type promptService interface {
	SystemPrompt(ctx context.Context) (string, error)
	SetSystemPrompt(ctx context.Context, prompt string) error
}

// repl reads lines and dispatches them to the controller. An auth failure
// ends the loop with an error wrapping api.ErrAuthRequired.
type repl struct {
	ctrl     *chat.Controller
	prompts  promptService
	out      io.Writer
	loginURL string
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(r.out, headerStyle.Render("modelchat")+dateStyle.Render(" type /help for commands"))
	if session, ok := r.ctrl.Store().Active(); ok && len(session.Messages) > 0 {
		printMessages(r.out, session)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, r.promptLine())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.handleCommand(ctx, line)
			if errors.Is(err, api.ErrAuthRequired) {
				return err
			}
			if err != nil {
				fmt.Fprintln(r.out, errorStyle.Render("✗ "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := r.send(ctx, line); err != nil {
			if errors.Is(err, api.ErrAuthRequired) {
				return err
			}
			fmt.Fprintln(r.out, errorStyle.Render("✗ "+err.Error()))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	fmt.Fprintln(r.out)
	return scanner.Err()
}

func (r *repl) promptLine() string {
	name := "no session"
	if session, ok := r.ctrl.Store().Active(); ok {
		name = session.Name
	}
	return userStyle.Render(name) + " > "
}

// send delivers one message. Ctrl-C cancels the request, not the program.
func (r *repl) send(ctx context.Context, text string) error {
	reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	outcome := <-r.ctrl.SendAsync(reqCtx, text)
	switch outcome.Kind {
	case chat.Succeeded:
		fmt.Fprintln(r.out)
		printMessage(r.out, internal.Message{Content: outcome.Message, Sender: internal.SenderAssistant})
	case chat.Failed:
		if outcome.Message == "" {
			return outcome.Err
		}
		fmt.Fprintln(r.out, warningStyle.Render(outcome.Message))
	case chat.AuthRequired:
		return authError(r.loginURL)
	case chat.Discarded:
		fmt.Fprintln(r.out, dateStyle.Render("(reply dropped, the session was deleted)"))
	}
	return nil
}

// handleCommand runs a slash command. quit is true for /quit and /exit.
func (r *repl) handleCommand(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	name, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	store := r.ctrl.Store()

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Fprintln(r.out, chatHelp)

	case "/new":
		session := r.ctrl.NewSession()
		fmt.Fprintf(r.out, "%s Started %s (user %d)\n", successStyle.Render("✓"), session.Name, session.UserID)

	case "/list":
		printSessionTable(r.out, store.ListSessions(), store.ActiveID())

	case "/switch":
		if rest == "" {
			return false, errors.New("usage: /switch <n|id>")
		}
		id, err := r.resolve(rest)
		if err != nil {
			return false, err
		}
		r.ctrl.Switch(id)
		if session, ok := store.Active(); ok {
			printMessages(r.out, session)
		}

	case "/delete":
		id := store.ActiveID()
		if rest != "" {
			if id, err = r.resolve(rest); err != nil {
				return false, err
			}
		}
		if id == "" {
			return false, errors.New("no session to delete")
		}
		outcome := r.ctrl.Delete(ctx, id)
		if err := r.outcomeError(outcome); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "%s Deleted session for user %d\n", successStyle.Render("✓"), outcome.Target.UserID)

	case "/clear":
		id := store.ActiveID()
		if id == "" {
			return false, errors.New("no active session")
		}
		outcome := r.ctrl.ClearHistory(ctx, id)
		if outcome.Kind == chat.Failed && outcome.Message != "" {
			fmt.Fprintln(r.out, warningStyle.Render(outcome.Message))
			return false, nil
		}
		if err := r.outcomeError(outcome); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, successStyle.Render("✓")+" "+outcome.Message)

	case "/history":
		session, ok := store.Active()
		if !ok {
			return false, errors.New("no active session")
		}
		printMessages(r.out, session)

	case "/prompt":
		if rest == "" {
			prompt, err := r.prompts.SystemPrompt(ctx)
			if err != nil {
				return false, r.requestError("failed to get system prompt", err)
			}
			fmt.Fprintln(r.out, prompt)
			return false, nil
		}
		if err := r.prompts.SetSystemPrompt(ctx, rest); err != nil {
			return false, r.requestError("failed to set system prompt", err)
		}
		fmt.Fprintln(r.out, successStyle.Render("✓")+" System prompt updated")

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

// resolve maps a list position, a user id or a session id to a session id
func (r *repl) resolve(ref string) (string, error) {
	store := r.ctrl.Store()
	sessions := store.ListSessions()

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(sessions) {
			return sessions[n-1].ID, nil
		}
		for _, session := range sessions {
			if session.UserID == n {
				return session.ID, nil
			}
		}
	}
	if _, ok := store.Get(ref); ok {
		return ref, nil
	}
	return "", fmt.Errorf("no session matches %q (see /list)", ref)
}

func (r *repl) outcomeError(outcome chat.Outcome) error {
	switch outcome.Kind {
	case chat.Succeeded, chat.Skipped:
		return nil
	case chat.AuthRequired:
		return authError(r.loginURL)
	}
	if outcome.Message != "" {
		return errors.New(outcome.Message)
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	return fmt.Errorf("request %s", outcome.Kind)
}

func (r *repl) requestError(op string, err error) error {
	if api.Classify(err) == api.KindAuth {
		return authError(r.loginURL)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// terminalNotifier draws a typing indicator while a request is pending
type terminalNotifier struct {
	w       io.Writer
	spinner *internal.Spinner
}

func newTerminalNotifier(w io.Writer) *terminalNotifier {
	return &terminalNotifier{w: w, spinner: internal.NewSpinner(w, "waiting for the backend...")}
}

func (n *terminalNotifier) Pending(_ chat.Target, on bool) {
	if on {
		n.spinner.Start()
		return
	}
	n.spinner.Stop()
}

func (n *terminalNotifier) AuthRequired(loginURL string) {
	fmt.Fprintln(n.w, warningStyle.Render("Authentication required. Log in at "+loginURL))
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatArchive, "archive", false, "Mirror sessions to the local archive")
}
