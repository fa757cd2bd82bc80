package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/chosenoffset/refscope/pkg/refscope/regex"
)

var tokenStyles = map[string]lipgloss.Style{
	"meta":      lipgloss.NewStyle().Foreground(lipgloss.Color("176")),
	"chr":       lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	"chr-meta":  lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	"chr-range": lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
	"delim":     lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	"flags":     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
}

func newRegexCmd(a *app) *cobra.Command {
	var bare bool
	cmd := &cobra.Command{
		Use:   "regex PATTERN",
		Short: "Validate and tokenize a regular expression",
		Long: `Regex checks a delimited pattern such as "/a(b|c)+/i" and lists its
classified tokens. --bare accepts a pattern without delimiters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			color, err := a.useColor(out)
			if err != nil {
				return err
			}

			split := regex.Split
			if bare {
				split = regex.Tokenize
			}
			tokens, err := split(args[0])
			if err != nil {
				var se *regex.SyntaxError
				if errors.As(err, &se) && se.Kind != regex.ErrNotPattern {
					fmt.Fprintln(out, args[0])
					fmt.Fprintf(out, "%s^\n", strings.Repeat(" ", min(se.Offset, len(args[0]))))
				}
				return err
			}

			fmt.Fprintf(out, "valid: %d tokens\n", len(tokens))
			for _, tok := range tokens {
				class := tok.Class()
				literal := fmt.Sprintf("%q", tok.Literal)
				if color {
					style, ok := tokenStyles[class]
					if !ok && strings.HasPrefix(class, "g") {
						style, ok = lipgloss.NewStyle().Bold(true), true
					}
					if ok {
						literal = style.Render(literal)
					}
				}
				fmt.Fprintf(out, "%4d  %-9s %s\n", tok.Position, class, literal)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bare, "bare", false, "pattern has no delimiters")
	return cmd
}
