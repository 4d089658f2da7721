package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/scenariokit"
)

var ErrInvalidAssignment = errors.New("expected name=value")

// NewRenderCommand creates the 'render' command
func NewRenderCommand() *cobra.Command {
	var (
		assignments []string
		typed       bool
		keepFalsy   bool
	)

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Replace {placeholders} in a template",
		Long: `Render replaces every {name} in TEMPLATE with the value given by --set name=value.
Placeholders without a value are left as they are. With --typed, values are
parsed as YAML scalars, so "0" and "false" count as empty unless --keep-falsy
is also given.`,
		Example: `  scenariokit render "/users/{id}/orders" --set id=42`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := parseAssignments(assignments, typed)
			if err != nil {
				return err
			}
			var opts []scenariokit.RenderOption
			if keepFalsy {
				opts = append(opts, scenariokit.WithFalsyValues())
			}
			fmt.Fprintln(cmd.OutOrStdout(), scenariokit.NewRenderer(opts...).Render(args[0], mapping))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "placeholder value as name=value (repeatable)")
	cmd.Flags().BoolVar(&typed, "typed", false, "parse values as YAML scalars")
	cmd.Flags().BoolVar(&keepFalsy, "keep-falsy", false, "substitute empty, zero and false values too")

	return cmd
}

func parseAssignments(assignments []string, typed bool) (scenariokit.Mapping, error) {
	mapping := make(scenariokit.Mapping, len(assignments))
	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w, got %q", ErrInvalidAssignment, a)
		}
		if !typed {
			mapping[name] = raw
			continue
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("parse value of %s: %w", name, err)
		}
		mapping[name] = value
	}
	return mapping, nil
}
