package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/hamzaessahbaoui/taskpilot/chat"
	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
)

// repl reads multi-line operator input and routes it to the controller. A
// blank line submits what was typed so far.
type repl struct {
	ctrl     *chat.Controller
	in       *bufio.Reader
	out      io.Writer
	markdown bool
}

func newREPL(ctrl *chat.Controller, in io.Reader, out io.Writer, markdown bool) *repl {
	return &repl{ctrl: ctrl, in: bufio.NewReader(in), out: out, markdown: markdown}
}

func (r *repl) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// Run loops until the operator types exit or input ends. The session is saved
// on the way out.
func (r *repl) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return r.quit(ctx)
		}
		r.printf("\n(turns = %d) What would you like to do? (type 'exit' to quit, blank line to send)\n",
			r.ctrl.Session().Conversation.Len())

		text, eof, err := r.read()
		if err != nil {
			return err
		}
		if eof && text == "" {
			return r.quit(ctx)
		}
		if done := r.handle(ctx, text); done {
			return r.quit(ctx)
		}
		if eof {
			return r.quit(ctx)
		}
	}
}

func (r *repl) read() (string, bool, error) {
	var lines []string
	for {
		line, err := r.in.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err == io.EOF {
			if line != "" {
				lines = append(lines, line)
			}
			return strings.TrimSpace(strings.Join(lines, "\n")), true, nil
		}
		if err != nil {
			return "", false, errors.Wrap(err, "read input")
		}
		if strings.TrimSpace(line) == "" {
			if len(lines) == 0 {
				continue
			}
			return strings.TrimSpace(strings.Join(lines, "\n")), false, nil
		}
		lines = append(lines, line)
	}
}

// handle processes one submission and reports whether the operator asked to exit.
func (r *repl) handle(ctx context.Context, text string) bool {
	switch {
	case strings.EqualFold(text, "exit"):
		return true
	case strings.EqualFold(text, "/s"):
		r.printf("Summarizing session state and updating the history.\n")
		res, err := r.ctrl.Summarize(ctx)
		r.report(res, err)
	case text == "/retry":
		res, err := r.ctrl.Retry(ctx)
		r.report(res, err)
	case strings.HasPrefix(text, "/f "):
		path := strings.TrimSpace(strings.TrimPrefix(text, "/f "))
		doc, err := r.ctrl.Attach(path)
		if err != nil {
			r.printf("Could not attach %s: %v\n", path, err)
			return false
		}
		r.printf("File loaded: %s (sent with your next message)\n", doc.Name)
	default:
		res, err := r.ctrl.Send(ctx, text)
		r.report(res, err)
	}
	return false
}

func (r *repl) report(res *orchestrator.Result, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		r.printf("Empty input. Please type a message or 'exit' to quit.\n")
		return
	case errors.Is(err, orchestrator.ErrMaxToolRounds):
		r.printf("Stopped after too many tool rounds. Type /retry to let the model continue.\n")
		return
	case errors.Is(err, orchestrator.ErrNothingToResume):
		r.printf("Nothing to retry.\n")
		return
	case orchestrator.IsTransportError(err):
		r.printf("The model request failed: %v\nType /retry to resubmit.\n", err)
		return
	case err != nil:
		r.printf("Error: %v\n", err)
		return
	}

	log.Info().
		Int64("input_tokens", res.Usage.InputTokens).
		Int64("output_tokens", res.Usage.OutputTokens).
		Int("tool_rounds", res.Rounds).
		Str("stop_reason", string(res.StopReason)).
		Msg("exchange complete")
	r.printf("\n%s\n", r.render(res.Final.Text()))
	r.printf("Session saved: %s\n", r.ctrl.Session().ID)
}

func (r *repl) render(text string) string {
	if !r.markdown || text == "" {
		return text
	}
	styled, err := glamour.Render(text, "dark")
	if err != nil {
		log.Debug().Err(err).Msg("markdown rendering failed, printing raw text")
		return text
	}
	return styled
}

// quit saves even when ctx was cancelled by an interrupt.
func (r *repl) quit(ctx context.Context) error {
	if err := r.ctrl.Save(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	r.printf("Session saved: %s\nGoodbye!\n", r.ctrl.Session().ID)
	return nil
}
