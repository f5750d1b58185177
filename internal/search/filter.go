// Package search narrows an in-memory snapshot of posts by title.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/idilsaglam/postboard/internal/model"
)

// Filter returns the posts whose case-folded title contains the case-folded
// query. Order is preserved and the input slice is never modified. An empty
// query matches every post.
func Filter(query string, posts []model.Post) []model.Post {
	out := make([]model.Post, 0, len(posts))
	if query == "" {
		return append(out, posts...)
	}

	fold := cases.Fold()
	needle := fold.String(query)
	for _, p := range posts {
		if strings.Contains(fold.String(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether a single title matches the query under the same
// rules as Filter.
func Match(query, title string) bool {
	if query == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(title), fold.String(query))
}
