package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/ui"
)

// ActionKind names what a per-post control does.
type ActionKind int

const (
	ActionUpdate ActionKind = iota
	ActionDelete
)

func (k ActionKind) String() string {
	switch k {
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// An Action is a control bound to one post. It carries the post itself, so
// running it never depends on what else is on screen.
type Action struct {
	Kind ActionKind
	Post model.Post
}

// postItem is the view model of one rendered post.
type postItem struct {
	post model.Post
}

// Actions lists the controls the item exposes.
func (i postItem) Actions() []Action {
	return []Action{
		{Kind: ActionDelete, Post: i.post},
		{Kind: ActionUpdate, Post: i.post},
	}
}

// Action returns the item's control of the given kind.
func (i postItem) Action(kind ActionKind) (Action, bool) {
	for _, a := range i.Actions() {
		if a.Kind == kind {
			return a, true
		}
	}
	return Action{}, false
}

// Implement list.Item
func (i postItem) Title() string       { return i.post.Title }
func (i postItem) Description() string { return i.post.Body }
func (i postItem) FilterValue() string { return i.post.Title }

// render builds one item per post. The list is always repopulated whole.
func render(posts []model.Post) []list.Item {
	items := make([]list.Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, postItem{post: p})
	}
	return items
}

// itemDelegate draws a post as title, body excerpt and image URL.
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 3 }
func (d itemDelegate) Spacing() int                              { return 1 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(postItem)
	if !ok {
		return
	}
	width := m.Width() - 4
	if width < 10 {
		width = 10
	}

	title := it.post.Title
	if title == "" {
		title = "(untitled)"
	}
	title = titleStyle.Render(ui.Truncate(title, width))
	body := ui.Truncate(strings.Join(strings.Fields(it.post.Body), " "), width)
	image := mutedStyle.Render(ui.Truncate("⧉ "+it.post.Image, width))

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s\n  %s\n  %s", prefix, title, body, image)
}
