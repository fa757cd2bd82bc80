package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chosenoffset/refscope/pkg/refscope/format"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		as     string
		header bool
	)
	cmd := &cobra.Command{
		Use:   "render [file...]",
		Short: "Render JSON, YAML, serialized or raw input",
		Long: `Render decodes each file and prints it as an inspectable tree. With no
files, or with "-", stdin is read.`,
		Example: `  refdump render ledger.json
  refdump render --as serialized session.txt
  cat config.yaml | refdump render --as yaml -f html > config.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			out := cmd.OutOrStdout()
			in, an, err := a.inspector(out, nil)
			if err != nil {
				return err
			}
			opts, err := a.formatOptions(out)
			if err != nil {
				return err
			}

			for _, name := range args {
				data, err := readInput(cmd, name)
				if err != nil {
					return err
				}
				v, err := decode(an, name, data, as)
				if err != nil {
					return err
				}
				f, err := format.New(a.format, out, opts...)
				if err != nil {
					return err
				}
				expr := ""
				if header && name != "-" {
					expr = filepath.Base(name)
				}
				if err := in.Query(f, v, expr); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", inputAuto, fmt.Sprintf("input kind (%s)", strings.Join(inputKinds, ", ")))
	cmd.Flags().BoolVar(&header, "header", true, "echo the file name above each document")
	return cmd
}
