package tui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/idilsaglam/postboard/internal/app"
	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/store/memstore"
	"github.com/idilsaglam/postboard/internal/store/remote"
)

func newBoard(t *testing.T) (*memstore.Store, Model) {
	t.Helper()
	s := memstore.New("posts", nil)
	s.Put("k1", []byte(`{"title":"Hello","body":"first body","image":"http://img/1"}`))
	s.Put("k2", []byte(`{"title":"World","body":"second body","image":"http://img/2"}`))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	client, err := remote.New(remote.Config{Endpoint: ts.URL})
	require.NoError(t, err)
	m := New(app.NewController(client, nil, nil), Options{Timeout: 2 * time.Second})
	return s, drain(t, m, m.Init())
}

// collect runs cmd and flattens batches into the messages they produce.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drain runs the tasks in cmd and feeds their results back into the model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case loadedMsg, mutatedMsg:
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) []tea.KeyMsg {
	out := make([]tea.KeyMsg, 0, len(s))
	for _, r := range s {
		out = append(out, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return out
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func titles(m Model) []string {
	var out []string
	for _, it := range m.list.Items() {
		out = append(out, it.(postItem).post.Title)
	}
	return out
}

func TestInitialLoad(t *testing.T) {
	_, m := newBoard(t)
	assert.Equal(t, []string{"Hello", "World"}, titles(m))
	assert.Equal(t, 0, m.pending)
	assert.False(t, m.statusErr)
	assert.Equal(t, "loaded 2 posts", m.status)
	assert.Contains(t, m.View(), "Hello")
}

func TestSearchFiltersWithoutFetching(t *testing.T) {
	s, m := newBoard(t)
	// a fetch during search would fail and show up as an error status
	s.FailNext(http.MethodGet, http.StatusInternalServerError)

	m, _ = press(m, runes("/")...)
	require.True(t, m.searching)

	m, _ = press(m, runes("ELL")...)
	assert.Equal(t, []string{"Hello"}, titles(m))
	assert.Equal(t, "ELL", m.ctrl.State().Query())

	m, _ = press(m, runes("zzz")...)
	assert.Empty(t, titles(m))
	assert.Contains(t, m.View(), "no post title matches")

	m, _ = press(m, esc)
	assert.False(t, m.searching)
	assert.Equal(t, "", m.ctrl.State().Query())
	assert.Equal(t, []string{"Hello", "World"}, titles(m))
	assert.False(t, m.statusErr)
}

func TestCreate(t *testing.T) {
	s, m := newBoard(t)

	m, _ = press(m, runes("a")...)
	require.Equal(t, formCreate, m.form.mode)

	m, _ = press(m, runes("Fresh")...)
	m, _ = press(m, tab)
	m, _ = press(m, runes("http://x")...)
	m, _ = press(m, tab)
	m, _ = press(m, runes("b")...)
	m, cmd := press(m, enter)
	require.NotNil(t, cmd)
	assert.False(t, m.form.open(), "form closes on submit")

	m = drain(t, m, cmd)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "post created", m.status)
	assert.Contains(t, titles(m), "Fresh")
}

func TestCreateRequiresFields(t *testing.T) {
	s, m := newBoard(t)

	m, _ = press(m, runes("a")...)
	m, _ = press(m, runes("only a title")...)
	m, cmd := press(m, ctrlS)
	assert.Nil(t, cmd)
	assert.True(t, m.form.open())
	assert.Contains(t, m.form.err, "image")
	assert.Equal(t, 2, s.Len())

	m, _ = press(m, esc)
	assert.False(t, m.form.open())
}

func TestUpdatePrefillsAndBindsID(t *testing.T) {
	s, m := newBoard(t)

	m, _ = press(m, runes("e")...)
	require.Equal(t, formUpdate, m.form.mode)
	assert.Equal(t, "k1", m.form.id)
	assert.Equal(t, model.Fields{Title: "Hello", Body: "first body", Image: "http://img/1"}, m.form.fields())

	m.form.inputs[fieldTitle].SetValue("Hello again")
	m, cmd := press(m, ctrlS)
	require.NotNil(t, cmd)
	m = drain(t, m, cmd)

	doc, ok := s.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "Hello again", gjson.GetBytes(doc, "title").String())
	assert.Equal(t, "first body", gjson.GetBytes(doc, "body").String())
	assert.Equal(t, "post updated", m.status)
	assert.Equal(t, []string{"Hello again", "World"}, titles(m))
}

func TestDeleteConfirmAndCancel(t *testing.T) {
	s, m := newBoard(t)

	m, _ = press(m, runes("d")...)
	require.NotNil(t, m.confirm)
	assert.Equal(t, "k1", m.confirm.id)
	assert.Equal(t, "Hello", m.confirm.title)
	assert.Contains(t, m.View(), "Delete this post?")

	m, cmd := press(m, runes("n")...)
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Equal(t, 2, s.Len())

	m, _ = press(m, runes("d")...)
	m, cmd = press(m, runes("y")...)
	require.NotNil(t, cmd)
	m = drain(t, m, cmd)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"World"}, titles(m))
	assert.Equal(t, "post deleted", m.status)
}

func TestFailedDeleteIsReported(t *testing.T) {
	s, m := newBoard(t)
	s.FailNext(http.MethodDelete, http.StatusUnauthorized)

	m, _ = press(m, runes("d")...)
	m, cmd := press(m, enter)
	m = drain(t, m, cmd)

	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "delete failed")
	assert.Contains(t, m.status, "injected failure")
	assert.Equal(t, []string{"Hello", "World"}, titles(m))
	assert.Equal(t, 2, s.Len())
}

func TestFailedRefreshKeepsList(t *testing.T) {
	s, m := newBoard(t)
	s.FailNext(http.MethodGet, http.StatusServiceUnavailable)

	m, cmd := press(m, runes("r")...)
	m = drain(t, m, cmd)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "refresh failed")
	assert.Equal(t, []string{"Hello", "World"}, titles(m))
}

func TestSearchSurvivesRefresh(t *testing.T) {
	s, m := newBoard(t)
	m, _ = press(m, runes("/wor")...)
	m, _ = press(m, enter)
	require.Equal(t, []string{"World"}, titles(m))

	s.Put("k3", []byte(`{"title":"Other world","body":"b","image":"i"}`))
	m, cmd := press(m, runes("r")...)
	m = drain(t, m, cmd)
	assert.Equal(t, []string{"World", "Other world"}, titles(m))
}

func TestItemActionsCarryPost(t *testing.T) {
	p := model.Post{ID: "k9", Title: "T", Body: "B", Image: "I"}
	it := postItem{post: p}

	actions := it.Actions()
	require.Len(t, actions, 2)
	for _, a := range actions {
		assert.Equal(t, p, a.Post)
	}

	del, ok := it.Action(ActionDelete)
	require.True(t, ok)
	assert.Equal(t, ActionDelete, del.Kind)
	assert.Equal(t, "delete", del.Kind.String())
	assert.Equal(t, "T", it.FilterValue())
}

func TestRenderReplacesWholeList(t *testing.T) {
	items := render([]model.Post{{ID: "a"}, {ID: "b"}})
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].(postItem).post.ID)
	assert.Empty(t, render(nil))
}
