package events

import (
	"context"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/hamzaessahbaoui/taskpilot/orchestrator"
)

// Print writes tool calls, tool results and round cap warnings from msgs to w
// until msgs closes or ctx is done. Other event types are acked silently.
func Print(ctx context.Context, w io.Writer, msgs <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := printMessage(w, msg); err != nil {
				log.Warn().Err(err).Str("message_id", msg.UUID).Msg("could not print event")
			}
			msg.Ack()
		}
	}
}

func printMessage(w io.Writer, msg *message.Message) error {
	ev, err := Decode(msg)
	if err != nil {
		return err
	}
	return PrintEvent(w, ev)
}

// PrintEvent renders one event in the debug trace format.
func PrintEvent(w io.Writer, ev orchestrator.Event) error {
	switch ev.Type {
	case orchestrator.EventToolCall:
		if _, err := fmt.Fprintf(w, "\n[tool call] %s (%s)\n", ev.ToolName, ev.ToolUseID); err != nil {
			return err
		}
		return writeYAML(w, ev.Input)
	case orchestrator.EventToolResult:
		if ev.Error != nil {
			_, err := fmt.Fprintf(w, "[tool error] %s: %s\n", ev.ToolName, ev.Error)
			return err
		}
		if _, err := fmt.Fprintf(w, "[tool result] %s\n", ev.ToolName); err != nil {
			return err
		}
		return writeYAML(w, ev.Payload)
	case orchestrator.EventInertBlock:
		_, err := fmt.Fprintf(w, "[skipped block] %s\n", ev.BlockType)
		return err
	case orchestrator.EventMaxRounds:
		_, err := fmt.Fprintf(w, "[stopped] tool round limit reached after %d rounds\n", ev.Round)
		return err
	}
	return nil
}

func writeYAML(w io.Writer, v map[string]interface{}) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "  {}")
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
