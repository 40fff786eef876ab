package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natalines/zoobot/schema"
)

func newSchemaCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "schema [name]",
		Short: "Inspect a built-in or custom question schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s   *schema.Schema
				err error
			)
			switch {
			case file != "":
				s, err = schema.Load(file)
			case len(args) == 1:
				s, err = schema.ByName(args[0])
			default:
				s, err = schema.ByName("gz2")
			}
			if err != nil {
				return err
			}
			printSchema(cmd, s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "load the schema from a YAML file")
	return cmd
}

func printSchema(cmd *cobra.Command, s *schema.Schema) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d questions, %d answer columns\n", s.NumQuestions(), s.Width())
	if s.IsBinary() {
		fmt.Fprintln(out, "binary schema: accuracy diagnostic enabled")
	}
	for i, q := range s.Questions() {
		r := s.Range(i)
		fmt.Fprintf(out, "  [%d:%d) %s\n", r.Start, r.End, q)
	}
	for _, col := range s.LabelCols() {
		fmt.Fprintf(out, "    %s\n", col)
	}
}
