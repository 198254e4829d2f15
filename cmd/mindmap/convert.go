package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func convertCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:     "convert <file>",
		Short:   "Convert a draw.io or YAML map into a JSON dataset",
		Aliases: []string{"import"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			w, closeOut, err := output(cmd, out)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(ds); err != nil {
				closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			if out != "" {
				good.Fprintf(cmd.ErrOrStderr(), "  Wrote %s (%d nodes, %d connections)\n", out, len(ds.Nodes), len(ds.Connections))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file path (default: stdout)")
	return cmd
}
