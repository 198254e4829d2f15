package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
)

// SVG returns the frame as a standalone SVG document. Connections are drawn in the
// first group so labels paint above them.
func SVG(f Frame) string {
	var svg bytes.Buffer
	viewBox := f.ViewBox
	if viewBox == "" {
		viewBox = Viewport{}.String()
	}

	fmt.Fprintf(&svg, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s" class="mindmap-svg">`, html.EscapeString(viewBox))
	svg.WriteString("\n  <g>\n")
	for _, p := range f.Paths {
		fmt.Fprintf(&svg, `    <path class="mindmap-connection" d="%s" fill="none" stroke="black" />`, html.EscapeString(p.D))
		svg.WriteString("\n")
	}
	svg.WriteString("  </g>\n  <g>\n")
	for _, l := range f.Labels {
		fmt.Fprintf(&svg, `    <foreignObject class="mindmap-node" transform="%s" width="%s" height="%dpx">`,
			l.Transform(), num(l.Width), int(l.Height))
		// Content is escaped by the markup package.
		fmt.Fprintf(&svg, `<div xmlns="http://www.w3.org/1999/xhtml">%s</div></foreignObject>`, l.Content.String())
		svg.WriteString("\n")
	}
	svg.WriteString("  </g>\n</svg>\n")
	return svg.String()
}

// WriteSVG writes the frame as an SVG document.
func WriteSVG(w io.Writer, f Frame) error {
	if _, err := io.WriteString(w, SVG(f)); err != nil {
		return fmt.Errorf("failed to write SVG output: %w", err)
	}
	return nil
}

// WriteHTML writes a minimal page embedding the frame's SVG.
func WriteHTML(w io.Writer, title string, f Frame) error {
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("<style>\n")
	page.WriteString("  body { margin: 0; }\n")
	page.WriteString("  .mindmap-svg { width: 100vw; height: 100vh; }\n")
	page.WriteString("  .mindmap-node div { text-align: center; font-family: Arial, sans-serif; }\n")
	page.WriteString("</style>\n</head>\n<body>\n")
	page.WriteString(SVG(f))
	page.WriteString("</body>\n</html>\n")

	if _, err := w.Write(page.Bytes()); err != nil {
		return fmt.Errorf("failed to write HTML output: %w", err)
	}
	return nil
}
