// Package render formats learning paths for display.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/pablasso/parcours/internal/path"
)

// DisplayURL returns the link target shown for a resource URL: https:// is
// prefixed when the URL does not already start with http. Stored URLs are
// never rewritten.
func DisplayURL(url string) string {
	if url == "" || strings.HasPrefix(url, "http") {
		return url
	}
	return "https://" + url
}

// Resource formats a resource as "title (url)" or just the title.
func Resource(r path.Resource) string {
	if r.URL == "" {
		return r.Title
	}
	return fmt.Sprintf("%s (%s)", r.Title, DisplayURL(r.URL))
}

// Text writes a plain text outline of p.
func Text(w io.Writer, p path.LearningPath) error {
	var b strings.Builder

	title := p.Title
	if title == "" {
		title = "(untitled path)"
	}
	b.WriteString(title)
	b.WriteString("\n")
	if p.Objectives != "" {
		b.WriteString("\nObjectives:\n")
		for _, line := range strings.Split(p.Objectives, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	if len(p.Steps) == 0 {
		b.WriteString("\nNo steps.\n")
	}
	for i, step := range p.Steps {
		fmt.Fprintf(&b, "\n%2d. %s  [id %d]\n", i+1, step.Title, step.ID)
		if step.Task != "" {
			for _, line := range strings.Split(step.Task, "\n") {
				b.WriteString("    " + line + "\n")
			}
		}
		if len(step.Resources) == 0 {
			b.WriteString("    No resources\n")
			continue
		}
		for _, r := range step.Resources {
			fmt.Fprintf(&b, "    - %s  [id %d]\n", Resource(r), r.ID)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
