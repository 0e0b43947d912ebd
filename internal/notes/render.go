package notes

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Renderer rebuilds the visible note list from scratch on every call. The
// full rebuild is stateless with respect to prior output, trading efficiency
// for correctness on the small, human-generated lists this store holds.
type Renderer interface {
	Render(notes []Note) error
}

// MarkdownRenderer writes the note list as a markdown card list. Writes go
// through a temp file and rename so readers never observe a partial list.
type MarkdownRenderer struct {
	path  string
	title string
}

func NewMarkdownRenderer(path, title string) *MarkdownRenderer {
	return &MarkdownRenderer{path: path, title: title}
}

func (r *MarkdownRenderer) Render(notes []Note) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.title)
	if len(notes) == 0 {
		b.WriteString("_No notes yet._\n")
	}
	for _, n := range notes {
		created := time.UnixMilli(n.ID).UTC()
		fmt.Fprintf(&b, "## %s\n\n", created.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "%s\n\n", n.Note)
		if len(n.Tags) > 0 {
			rendered := make([]string, len(n.Tags))
			for i, tag := range n.Tags {
				rendered[i] = DisplayTag(tag)
			}
			fmt.Fprintf(&b, "%s\n\n", strings.Join(rendered, " "))
		}
	}

	dir := filepath.Dir(r.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create render dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".notes_*.md")
	if err != nil {
		return fmt.Errorf("temp render file: %w", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write render file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close render file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace render file: %w", err)
	}
	return nil
}
