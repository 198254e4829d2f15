package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MalithGihan/mindmap-service/internal/export"
	"github.com/MalithGihan/mindmap-service/internal/fetch"
	"github.com/MalithGihan/mindmap-service/internal/render"
	"github.com/MalithGihan/mindmap-service/internal/source"
)

func renderCmd() *cobra.Command {
	var (
		out     string
		url     string
		strict  bool
		timeout time.Duration
		title   string
	)
	cmd := &cobra.Command{
		Use:   "render [data-file] <format>",
		Short: "Render a dataset as svg, html, png or jpg",
		Example: "  mindmap render ideas.json svg -o ideas.svg\n" +
			"  mindmap render --url https://example.com/map.json png -o map.png",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			want := 2
			if url != "" {
				want = 1
			}
			if len(args) != want {
				return fmt.Errorf("expected %d argument(s), got %d", want, len(args))
			}
			format := strings.ToLower(args[want-1])
			if format != "svg" && format != "html" && !export.Supported(format) {
				return fmt.Errorf("unsupported export format '%s'. Supported formats: html, svg, png, jpg/jpeg", format)
			}

			errw := cmd.ErrOrStderr()
			cfg := source.Config{URL: url}
			if url == "" {
				ds, err := readDataset(args[0])
				if err != nil {
					return err
				}
				cfg.Nodes, cfg.Connections = ds.Nodes, ds.Connections
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			logger := log.New(errw, "", 0)
			src, err := source.New(cfg, fetch.New(timeout), source.WithLogger(logger))
			if err != nil {
				return err
			}
			defer src.Close()
			src.Start(ctx)
			ds, err := src.Wait(ctx)
			if err != nil {
				// An unreachable map still renders, empty.
				warn.Fprintf(errw, "  Warning: %v\n", err)
				ds = src.Snapshot()
			}

			renderer := &render.Renderer{Logger: logger}
			if strict {
				renderer.Policy = render.PolicyStrict
			}
			frame, err := renderer.Render(ds)
			if err != nil {
				return err
			}

			w, closeOut, err := output(cmd, out)
			if err != nil {
				return err
			}
			if err := write(ctx, w, frame, format, title); err != nil {
				closeOut()
				return fmt.Errorf("generating %s: %w", format, err)
			}
			if err := closeOut(); err != nil {
				return err
			}
			if out != "" {
				good.Fprintf(errw, "  Wrote %s (%d connections, %d nodes)\n", out, len(frame.Paths), len(frame.Labels))
			}
			if n := len(frame.Skipped); n > 0 {
				warn.Fprintf(errw, "  Skipped %d connection(s) with unknown nodes\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&url, "url", "", "Fetch the dataset from this URL instead of a file")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on connections that reference unknown nodes")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Timeout for fetching and exporting")
	cmd.Flags().StringVar(&title, "title", "Mind map", "Page title for html output")
	return cmd
}

func write(ctx context.Context, w io.Writer, frame render.Frame, format, title string) error {
	switch format {
	case "svg":
		return render.WriteSVG(w, frame)
	case "html":
		return render.WriteHTML(w, title, frame)
	default:
		return export.Image(ctx, render.SVG(frame), format, w)
	}
}
