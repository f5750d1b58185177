// Package tui is the interactive posts board: a Bubble Tea program that lists
// the collection, searches it as you type and runs create, update and delete
// against the store.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/postboard/internal/app"
	"github.com/idilsaglam/postboard/internal/logging"
	"github.com/idilsaglam/postboard/internal/model"
)

// Options tune the interactive board.
type Options struct {
	// Timeout bounds every store call. Zero means no extra deadline.
	Timeout time.Duration
	// Log receives task outcomes. Nil discards them.
	Log logrus.FieldLogger
}

// Task results, delivered back to Update.
type (
	loadedMsg  struct{ err error }
	mutatedMsg struct {
		op  string
		id  string
		err error
	}
)

type deleteConfirm struct {
	id    string
	title string
}

type keyMap struct {
	Add, Edit, Delete, Search, Refresh, Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Delete, k.Search, k.Refresh}
}

// Model is the Bubble Tea model of the board.
type Model struct {
	ctrl    *app.Controller
	log     logrus.FieldLogger
	timeout time.Duration
	keys    keyMap

	list      list.Model
	search    textinput.Model
	searching bool
	form      postForm
	confirm   *deleteConfirm

	status    string
	statusErr bool
	pending   int
	spin      spinner.Model

	width, height int
}

// New returns the board model over ctrl.
func New(ctrl *app.Controller, opt Options) Model {
	log := opt.Log
	if log == nil {
		log = logging.Discard()
	}
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("post", "posts")
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search titles..."
	search.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pendingStyle

	return Model{
		ctrl:    ctrl,
		log:     log.WithField("component", "tui"),
		timeout: opt.Timeout,
		keys:    keys,
		list:    l,
		search:  search,
		spin:    sp,
		pending: 1,
		width:   80,
		height:  24,
	}.layout()
}

// Run starts the board on the terminal and blocks until the user quits.
func Run(ctrl *app.Controller, opt Options) error {
	_, err := tea.NewProgram(New(ctrl, opt), tea.WithAltScreen()).Run()
	return err
}

// Init loads the baseline snapshot. New already counts that load as pending.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.layout(), nil

	case loadedMsg:
		m = m.settle()
		if msg.err != nil {
			m = m.fail("refresh failed", msg.err)
			return m, nil
		}
		m = m.succeed(fmt.Sprintf("loaded %d posts", len(m.ctrl.State().Posts())))
		return m.rerender(), nil

	case mutatedMsg:
		m = m.settle()
		var re *app.RefreshError
		switch {
		case msg.err == nil:
			m = m.succeed(pastTense(msg.op))
		case errors.As(msg.err, &re):
			m = m.fail(pastTense(msg.op)+", but the list could not be refreshed", re.Err)
		default:
			m = m.fail(msg.op+" failed", msg.err)
		}
		return m.rerender(), nil

	case spinner.TickMsg:
		if m.pending == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.confirm != nil:
			return m.updateConfirm(msg)
		case m.form.open():
			return m.updateForm(msg)
		case m.searching:
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}

	if m.form.open() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		cmd := m.search.Focus()
		return m.layout(), cmd
	case key.Matches(msg, m.keys.Add):
		m.form = newPostForm(formCreate, model.Post{})
		return m.layout(), textinput.Blink
	case key.Matches(msg, m.keys.Edit):
		return m.runSelected(ActionUpdate)
	case key.Matches(msg, m.keys.Delete):
		return m.runSelected(ActionDelete)
	case key.Matches(msg, m.keys.Refresh):
		return m.dispatch(m.refresh())
	case msg.String() == "esc" && m.ctrl.State().Query() != "":
		return m.setQuery(""), nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// runSelected runs the given control of the selected post.
func (m Model) runSelected(kind ActionKind) (tea.Model, tea.Cmd) {
	it, ok := m.list.SelectedItem().(postItem)
	if !ok {
		return m, nil
	}
	a, ok := it.Action(kind)
	if !ok {
		return m, nil
	}
	return m.apply(a)
}

// apply opens the dialog an action leads to.
func (m Model) apply(a Action) (tea.Model, tea.Cmd) {
	if m.ctrl.State().InFlight(a.Post.ID) {
		m = m.fail("wait for the previous change to finish", app.ErrBusy)
		return m, nil
	}
	switch a.Kind {
	case ActionUpdate:
		m.form = newPostForm(formUpdate, a.Post)
		return m.layout(), textinput.Blink
	case ActionDelete:
		m.confirm = &deleteConfirm{id: a.Post.ID, title: a.Post.Title}
		return m.layout(), nil
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		return m.setQuery(""), nil
	case "enter", "down", "up":
		m.searching = false
		m.search.Blur()
		return m.layout(), nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.ctrl.State().Query() {
		m.ctrl.State().SetQuery(m.search.Value())
		m = m.rerender()
	}
	return m, cmd
}

func (m Model) setQuery(q string) Model {
	m.search.SetValue(q)
	m.ctrl.State().SetQuery(q)
	return m.rerender().layout()
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.form = postForm{}
		return m.layout(), nil
	case "tab", "down":
		m.form.move(1)
		return m, nil
	case "shift+tab", "up":
		m.form.move(-1)
		return m, nil
	case "ctrl+s":
		return m.submitForm()
	case "enter":
		if m.form.lastField() {
			return m.submitForm()
		}
		m.form.move(1)
		return m, nil
	}
	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form.fields()
	if err := f.Validate(); err != nil {
		m.form.err = err.Error()
		return m, nil
	}

	var task tea.Cmd
	switch m.form.mode {
	case formCreate:
		task = m.createTask(f)
	case formUpdate:
		id := m.form.id
		if m.ctrl.State().InFlight(id) {
			m.form.err = app.ErrBusy.Error()
			return m, nil
		}
		task = m.updateTask(id, f)
	}
	m.form = postForm{}
	return m.layout().dispatch(task)
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		id := m.confirm.id
		m.confirm = nil
		return m.layout().dispatch(m.deleteTask(id))
	case "n", "N", "esc", "q":
		m.confirm = nil
		return m.layout(), nil
	}
	return m, nil
}

// dispatch starts a task and the spinner if nothing else is running.
func (m Model) dispatch(task tea.Cmd) (tea.Model, tea.Cmd) {
	m.pending++
	if m.pending == 1 {
		return m, tea.Batch(task, m.spin.Tick)
	}
	return m, task
}

func (m Model) settle() Model {
	if m.pending > 0 {
		m.pending--
	}
	return m
}

func (m Model) succeed(status string) Model {
	m.status, m.statusErr = status, false
	return m
}

func (m Model) fail(status string, err error) Model {
	m.status, m.statusErr = status+": "+err.Error(), true
	m.log.WithError(err).Warn(status)
	return m
}

// rerender replaces every rendered item with the visible part of the snapshot.
func (m Model) rerender() Model {
	items := render(m.ctrl.State().Visible())
	m.list.SetItems(items)
	if n := len(items); n > 0 && m.list.Index() >= n {
		m.list.Select(n - 1)
	}
	return m
}

func (m Model) layout() Model {
	reserved := 6 // frame, header, status
	switch {
	case m.form.open():
		reserved += fieldCount + 4
	case m.confirm != nil:
		reserved += 5
	}
	if m.searching || m.search.Value() != "" {
		reserved++
	}
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
	return m
}

func (m Model) View() string {
	var b strings.Builder

	st := m.ctrl.State()
	total, shown := len(st.Posts()), len(m.list.Items())
	header := fmt.Sprintf("%s   %s %d  %s %d",
		titleStyle.Render("Posts"),
		accentStyle.Render("shown"), shown,
		mutedStyle.Render("total"), total,
	)
	if m.pending > 0 {
		header += "  " + m.spin.View()
	}
	b.WriteString(header + "\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View() + "\n")
	}

	switch {
	case !st.Loaded() && m.pending > 0:
		b.WriteString(mutedStyle.Render("loading posts...") + "\n")
	case shown == 0 && st.Query() != "":
		b.WriteString(mutedStyle.Render("no post title matches the search") + "\n")
	case shown == 0:
		b.WriteString(mutedStyle.Render("no posts yet, press a to add one") + "\n")
	default:
		b.WriteString(m.list.View() + "\n")
	}

	switch {
	case m.form.open():
		b.WriteString(m.form.View(m.width-4) + "\n")
	case m.confirm != nil:
		body := fmt.Sprintf("%s\n%s\n%s %s\n%s",
			errorStyle.Render("Delete this post?"),
			titleStyle.Render(m.confirm.title),
			mutedStyle.Render("id"), m.confirm.id,
			helpStyle.Render("y/enter delete • n/esc cancel"),
		)
		b.WriteString(dangerStyle.Render(body) + "\n")
	}

	if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
	}
	return frameStyle.Width(max(m.width-2, 20)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) taskContext() (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(context.Background(), m.timeout)
	}
	return context.WithCancel(context.Background())
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.taskContext()
		defer cancel()
		return loadedMsg{err: m.ctrl.Refresh(ctx)}
	}
}

func (m Model) createTask(f model.Fields) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.taskContext()
		defer cancel()
		id, err := m.ctrl.Create(ctx, f)
		return mutatedMsg{op: "create", id: id, err: err}
	}
}

func (m Model) updateTask(id string, f model.Fields) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.taskContext()
		defer cancel()
		return mutatedMsg{op: "update", id: id, err: m.ctrl.Update(ctx, id, f)}
	}
}

func (m Model) deleteTask(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.taskContext()
		defer cancel()
		return mutatedMsg{op: "delete", id: id, err: m.ctrl.Delete(ctx, id)}
	}
}

func pastTense(op string) string {
	switch op {
	case "create":
		return "post created"
	case "update":
		return "post updated"
	case "delete":
		return "post deleted"
	}
	return op + " done"
}

var _ tea.Model = Model{}
