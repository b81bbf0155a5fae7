package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"

	"github.com/hamzaessahbaoui/taskpilot/chat"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
	"github.com/hamzaessahbaoui/taskpilot/pkg/events"
	"github.com/hamzaessahbaoui/taskpilot/session"
	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

const newSessionChoice = "start a new session"

func newChatCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session with the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			id, _ := cmd.Flags().GetString("session")
			fresh, _ := cmd.Flags().GetBool("new")
			return runChat(ctx, a, id, fresh, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("session", "", "Resume the session with this id")
	cmd.Flags().Bool("new", false, "Start a new session without asking")
	return cmd
}

func runChat(ctx context.Context, a *app, id string, fresh bool, in io.Reader, out io.Writer) error {
	store, closer, err := openStore(a.cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	tk, err := buildToolkit(a.cfg)
	if err != nil {
		return err
	}
	model, modelName, err := buildModel(a.cfg)
	if err != nil {
		return err
	}

	var sink orchestrator.Sink = orchestrator.NopSink
	if a.cfg.Debug {
		bus := events.NewBus(events.WithWatermillLogger(events.NewLogger(log.Logger)))
		defer bus.Close()
		msgs, err := bus.Subscribe(ctx)
		if err != nil {
			return err
		}
		go events.Print(ctx, os.Stderr, msgs)
		sink = bus
	}

	engine, err := orchestrator.New(model, tk,
		orchestrator.WithModelName(modelName),
		orchestrator.WithMaxTokens(a.cfg.MaxTokens),
		orchestrator.WithMaxToolRounds(a.cfg.MaxToolRounds),
		orchestrator.WithSystemPrompt(a.cfg.SystemPrompt),
		orchestrator.WithSink(sink),
	)
	if err != nil {
		return err
	}

	sess, err := chooseSession(ctx, store, id, fresh, in, out)
	if err != nil {
		return err
	}
	ctrl, err := chat.NewController(engine, store, sess)
	if err != nil {
		return err
	}

	printTools(out, tk)
	markdown := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return newREPL(ctrl, in, out, markdown).Run(ctx)
}

// chooseSession loads the named session, or asks the operator to pick one
// when sessions exist. nil means a new session.
func chooseSession(ctx context.Context, store session.Store, id string, fresh bool, in io.Reader, out io.Writer) (*session.Session, error) {
	if id != "" {
		sess, err := store.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		_, _ = fmt.Fprintf(out, "Loaded existing session: %s\n", sess.ID)
		return sess, nil
	}
	if fresh {
		return newSession(out), nil
	}

	summaries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(out, "No existing sessions found.")
		return newSession(out), nil
	}

	choices := []string{newSessionChoice}
	byChoice := map[string]string{}
	for _, s := range summaries {
		label := fmt.Sprintf("Session %s... (last updated: %s)", session.ShortID(s.ID), s.LastUpdated.Local().Format("2006-01-02 15:04:05"))
		choices = append(choices, label)
		byChoice[label] = s.ID
	}

	ui := &input.UI{Reader: lineReader{in}, Writer: out}
	answer, err := ui.Select("Load an existing session or start a new one?", choices, &input.Options{
		Default: newSessionChoice,
		Loop:    true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "choose session")
	}
	sessID, ok := byChoice[answer]
	if !ok {
		return newSession(out), nil
	}
	sess, err := store.Load(ctx, sessID)
	if err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(out, "Loaded existing session: %s\n", sess.ID)
	return sess, nil
}

// lineReader hands out one byte per Read so the prompt's buffered reader never
// consumes input past the answer line.
type lineReader struct {
	r io.Reader
}

func (l lineReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return l.r.Read(p[:1])
}

func newSession(out io.Writer) *session.Session {
	sess := session.New()
	_, _ = fmt.Fprintf(out, "Created new session: %s\n", sess.ID)
	return sess
}

func printTools(out io.Writer, tk *toolkit.Toolkit) {
	_, _ = fmt.Fprintln(out, "Tools:")
	for _, spec := range tk.Specs() {
		_, _ = fmt.Fprintf(out, "\t%s: %s\n", spec.Name, spec.Description)
	}
}
