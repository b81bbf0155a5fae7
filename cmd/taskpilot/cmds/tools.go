package cmds

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamzaessahbaoui/taskpilot/toolkit"
)

func newToolsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Show every registered tool with its input and output fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := buildToolkit(a.cfg)
			if err != nil {
				return err
			}
			return writeToolTable(cmd.OutOrStdout(), tk.Specs())
		},
	}
}

// writeToolTable prints one row per tool. Required fields carry a trailing *.
func writeToolTable(w io.Writer, specs []toolkit.Spec) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TOOL\tINPUT\tOUTPUT\tDESCRIPTION")
	for _, s := range specs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, schemaFields(s.InputSchema), schemaFields(s.OutputSchema), s.Description)
	}
	return tw.Flush()
}

func schemaFields(s toolkit.Schema) string {
	props, _ := s["properties"].(map[string]interface{})
	if len(props) == 0 {
		return "-"
	}
	required := map[string]bool{}
	for _, name := range s.RequiredFields() {
		required[name] = true
	}
	names := make([]string, 0, len(props))
	for name := range props {
		if required[name] {
			name += "*"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
