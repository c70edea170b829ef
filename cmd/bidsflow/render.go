// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders md for the terminal. style is a glamour standard
// style name, "auto" to detect the background, or "raw" to skip rendering.
func renderMarkdown(md, style string, width int) (string, error) {
	if style == "raw" {
		return md, nil
	}

	var opts []glamour.TermRendererOption
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}

	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
