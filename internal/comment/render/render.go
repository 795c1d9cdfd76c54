// Package render draws a comment thread for the terminal, one comment per
// line, indented by depth.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

var (
	evenShade = lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#1C2630"}
	oddShade  = lipgloss.AdaptiveColor{Light: "#E4E9EE", Dark: "#0F1923"}
	accent    = lipgloss.Color("#20B9B4")
	muted     = lipgloss.Color("#6C7A80")
)

type Options struct {
	// MaxIndent caps how many levels are drawn. Deeper replies are drawn at
	// this level. Zero means no cap.
	MaxIndent int
	// IndentWidth is the number of spaces per level, 2 when unset.
	IndentWidth int
	// Viewer marks the viewer's own comments and likes.
	Viewer string
}

type styles struct {
	even, odd lipgloss.Style
	author    lipgloss.Style
	meta      lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		even:   r.NewStyle().Background(evenShade),
		odd:    r.NewStyle().Background(oddShade),
		author: r.NewStyle().Bold(true).Foreground(accent),
		meta:   r.NewStyle().Foreground(muted),
	}
}

// Thread writes a header with the total comment count followed by every
// comment in pre-order.
func Thread(w io.Writer, t tree.Tree, opts Options) error {
	st := newStyles(w)
	if opts.IndentWidth <= 0 {
		opts.IndentWidth = 2
	}

	if _, err := fmt.Fprintln(w, st.meta.Render(plural(t.TotalCount(), "comment"))); err != nil {
		return err
	}

	var werr error
	t.Walk(func(c model.Comment, depth int) bool {
		_, werr = fmt.Fprintln(w, line(st, c, depth, opts))
		return werr == nil
	})
	return werr
}

// Indent returns the visual level for a comment at depth.
func Indent(depth, maxIndent int) int {
	if maxIndent > 0 && depth > maxIndent {
		return maxIndent
	}
	return depth
}

func line(st styles, c model.Comment, depth int, opts Options) string {
	shade := st.even
	if depth%2 == 1 {
		shade = st.odd
	}

	name := c.AuthorName
	if name == "" {
		name = c.AuthorID
	}
	if opts.Viewer != "" && c.AuthorID == opts.Viewer {
		name += " (you)"
	}

	heart := "♡"
	for _, u := range c.Likes {
		if u == opts.Viewer {
			heart = "♥"
			break
		}
	}

	meta := fmt.Sprintf("%s %d", heart, len(c.Likes))
	if depth == 0 {
		meta += " · " + plural(tree.CountDescendants(c), "comment")
	}

	body := strings.Join(strings.Fields(c.Content), " ")
	text := st.author.Render(name) + " " + body + "  " + st.meta.Render(meta)

	pad := strings.Repeat(" ", Indent(depth, opts.MaxIndent)*opts.IndentWidth)
	return pad + shade.Render(text)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
