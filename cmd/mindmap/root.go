package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalithGihan/mindmap-service/internal/ingest"
	"github.com/MalithGihan/mindmap-service/pkg/types"
)

var version = "0.3.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mindmap",
		Short: "Render mind maps to svg, html and images",
		Long: brand.Sprint("mindmap") + ": render mind map datasets\n" +
			subtle.Sprint("Reads JSON, YAML or draw.io files, or fetches a dataset over HTTP"),
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("mindmap {{ .Version }}\n")
	root.AddCommand(renderCmd(), convertCmd())
	return root
}

// readDataset loads a dataset file, picking the importer from its extension.
func readDataset(path string) (types.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Dataset{}, fmt.Errorf("reading data file '%s': %w", path, err)
	}
	ds, err := ingest.Import(path, b)
	if err != nil {
		return types.Dataset{}, fmt.Errorf("parsing data file '%s': %w", path, err)
	}
	return ds, nil
}

// output returns the -o file, or the command's stdout when none is given.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file '%s': %w", path, err)
	}
	return f, f.Close, nil
}
