package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/postboard/internal/model"
)

type formMode int

const (
	formClosed formMode = iota
	formCreate
	formUpdate
)

const (
	fieldTitle = iota
	fieldImage
	fieldBody
	fieldCount
)

var fieldLabels = [fieldCount]string{"title", "image", "body"}

// postForm is the create/update dialog. In update mode it is bound to the id
// of the post being edited.
type postForm struct {
	mode   formMode
	id     string
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
}

func newPostForm(mode formMode, p model.Post) postForm {
	f := postForm{mode: mode, id: p.ID}
	placeholders := [fieldCount]string{"Post title...", "https://...", "What is it about?"}
	values := [fieldCount]string{p.Title, p.Image, p.Body}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 2000
		ti.SetValue(values[i])
		ti.CursorEnd()
		f.inputs[i] = ti
	}
	f.inputs[fieldTitle].Focus()
	return f
}

func (f postForm) open() bool { return f.mode != formClosed }

// fields reads the three editable values.
func (f postForm) fields() model.Fields {
	return model.Fields{
		Title: strings.TrimSpace(f.inputs[fieldTitle].Value()),
		Image: strings.TrimSpace(f.inputs[fieldImage].Value()),
		Body:  strings.TrimSpace(f.inputs[fieldBody].Value()),
	}
}

func (f postForm) lastField() bool { return f.focus == fieldCount-1 }

func (f *postForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

func (f postForm) Update(msg tea.Msg) (postForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f postForm) View(width int) string {
	var b strings.Builder
	title := "New post"
	if f.mode == formUpdate {
		title = "Edit post " + mutedStyle.Render(f.id)
	}
	b.WriteString(titleStyle.Render(title))
	if f.err != "" {
		b.WriteString("  " + errorStyle.Render(f.err))
	}
	b.WriteString("\n")

	for i := range f.inputs {
		in := f.inputs[i]
		in.Width = width - 14
		b.WriteString(labelStyle.Render(fieldLabels[i]) + in.View() + "\n")
	}
	b.WriteString(helpStyle.Render("tab next • enter save on last field • ctrl+s save • esc cancel"))
	return dialogStyle.Render(b.String())
}
