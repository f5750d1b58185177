package cli

import (
	"fmt"
	"strings"

	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/ui"
)

const lineWidth = 72

// listLines renders the ls panel: a header with counts, then one block per post.
func listLines(posts []model.Post, total int, query string) []string {
	t := ui.Current()
	header := fmt.Sprintf("%s  %s %d  %s %d",
		ui.C(t.Title, "Posts"),
		ui.C(t.Accent, "Shown"), len(posts),
		ui.C(t.Accent, "Total"), total,
	)

	lines := []string{header}
	if query != "" {
		lines = append(lines, ui.C(t.Muted, fmt.Sprintf("search: %q", query)))
	}
	lines = append(lines, "")
	lines = append(lines, postLines(posts, query != "")...)
	lines = append(lines, "")
	lines = append(lines, ui.C(t.Muted, "Tip: add with `postboard add --title T --image URL --body B`"))
	return lines
}

func postLines(posts []model.Post, filtered bool) []string {
	t := ui.Current()
	if len(posts) == 0 {
		if filtered {
			return []string{ui.C(t.Muted, "no posts match")}
		}
		return []string{ui.C(t.Muted, "no posts")}
	}
	out := make([]string, 0, 3*len(posts))
	for i, p := range posts {
		idx := fmt.Sprintf("%2d.", i+1)
		out = append(out, fmt.Sprintf("%s %s %s  %s",
			ui.Dim(idx), ui.C(t.Accent, t.SymBullet),
			ui.Truncate(p.Title, max(lineWidth-len(p.ID)-8, 16)), ui.C(t.Muted, p.ID)))
		if body := firstLine(p.Body); body != "" {
			out = append(out, "    "+ui.Truncate(body, lineWidth))
		}
		if p.Image != "" {
			out = append(out, "    "+ui.C(t.Muted, t.SymImage+" "+ui.Truncate(p.Image, lineWidth-len(t.SymImage)-1)))
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}
