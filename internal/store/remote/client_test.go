package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/postboard/internal/model"
	"github.com/idilsaglam/postboard/internal/store/memstore"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := New(Config{Endpoint: endpoint})
	require.NoError(t, err)
	return c
}

func newEmulated(t *testing.T) (*memstore.Store, *Client) {
	t.Helper()
	s := memstore.New(DefaultResource, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, newTestClient(t, ts.URL)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires endpoint", func(t *testing.T) {
		t.Parallel()
		c, err := New(Config{})
		require.Error(t, err)
		assert.Nil(t, c)
		assert.Contains(t, err.Error(), "endpoint is required")
	})

	t.Run("rejects relative endpoint", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{Endpoint: "example.invalid/db"})
		require.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, " https://db.example.invalid/ ")
		assert.Equal(t, DefaultResource, c.Resource())
		assert.Equal(t, defaultTimeout, c.http.Timeout)
		assert.Equal(t, "https://db.example.invalid/posts.json", c.collectionURL())
	})

	t.Run("custom resource and timeout", func(t *testing.T) {
		t.Parallel()
		c, err := New(Config{Endpoint: "http://h/base", Resource: "/notes/", Timeout: time.Second})
		require.NoError(t, err)
		assert.Equal(t, "notes", c.Resource())
		assert.Equal(t, time.Second, c.http.Timeout)
		assert.Equal(t, "http://h/base/notes.json", c.collectionURL())
		assert.Equal(t, "http://h/base/notes/k1.json", c.recordURL("k1"))
	})
}

func TestRecordURLEscapesKey(t *testing.T) {
	c := newTestClient(t, "http://h")
	assert.Equal(t, "http://h/posts/a%20b.json", c.recordURL("a b"))
	assert.Equal(t, "http://h/posts/a%2Fb.json", c.recordURL("a/b"))
}

func TestListScenario(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/posts.json", r.URL.Path)
		_, _ = io.WriteString(w, `{"k1":{"title":"Hello","body":"x","image":"u"}}`)
	}))
	defer ts.Close()

	posts, err := newTestClient(t, ts.URL).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Post{{ID: "k1", Title: "Hello", Body: "x", Image: "u"}}, posts)
}

func TestListNull(t *testing.T) {
	_, c := newEmulated(t)
	posts, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestCreateSendsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/posts.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"A","image":"http://x","body":"b"}`, string(b))
		_, _ = io.WriteString(w, `{"name":"-Nabc"}`)
	}))
	defer ts.Close()

	id, err := newTestClient(t, ts.URL).Create(context.Background(), model.Fields{Title: "A", Image: "http://x", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, "-Nabc", id)
}

func TestUpdateSendsFullReplace(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/posts/42.json", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"title":"B","body":"c","image":"http://y"}`, string(b))
		_, _ = w.Write(b)
	}))
	defer ts.Close()

	err := newTestClient(t, ts.URL).Update(context.Background(), "42", model.Fields{Title: "B", Body: "c", Image: "http://y"})
	require.NoError(t, err)
}

func TestMissingID(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	assert.ErrorIs(t, c.Update(context.Background(), " ", model.Fields{}), ErrMissingID)
	assert.ErrorIs(t, c.Delete(context.Background(), ""), ErrMissingID)
}

func TestRejectedOperation(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"firebase string error", http.StatusUnauthorized, `{"error":"Permission denied"}`, "Permission denied"},
		{"object error", http.StatusBadRequest, `{"error":{"message":"bad input"}}`, "bad input"},
		{"no body", http.StatusNotFound, ``, "Not Found"},
		{"html body", http.StatusBadGateway, `<html>oops</html>`, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			err := newTestClient(t, ts.URL).Delete(context.Background(), "k1")
			require.Error(t, err)
			assert.True(t, IsRejected(err))
			assert.False(t, IsTransport(err))

			var se *StoreError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "delete", se.Op)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.message, se.Message)
			assert.Equal(t, tt.status == http.StatusNotFound, se.NotFound())
		})
	}
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newTestClient(t, url).List(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.False(t, IsRejected(err))
}

func TestMalformedListBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[1,2,3]`)
	}))
	defer ts.Close()

	_, err := newTestClient(t, ts.URL).List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedCollection))
}

func TestContextCancel(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, ts.URL).List(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRoundTrips(t *testing.T) {
	ctx := context.Background()
	s, c := newEmulated(t)
	s.Put("42", []byte(`{"title":"old","body":"old","image":"http://old"}`))

	t.Run("list is idempotent", func(t *testing.T) {
		a, err := c.List(ctx)
		require.NoError(t, err)
		b, err := c.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("create then list", func(t *testing.T) {
		before, err := c.List(ctx)
		require.NoError(t, err)

		id, err := c.Create(ctx, model.Fields{Title: "A", Image: "http://x", Body: "b"})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		after, err := c.List(ctx)
		require.NoError(t, err)
		require.Len(t, after, len(before)+1)

		var found []model.Post
		for _, p := range after {
			if p.ID == id {
				found = append(found, p)
			}
		}
		require.Len(t, found, 1)
		assert.Equal(t, model.Post{ID: id, Title: "A", Image: "http://x", Body: "b"}, found[0])
	})

	t.Run("update then list", func(t *testing.T) {
		require.NoError(t, c.Update(ctx, "42", model.Fields{Title: "B", Body: "c", Image: "http://y"}))

		posts, err := c.List(ctx)
		require.NoError(t, err)
		var got *model.Post
		for i := range posts {
			if posts[i].ID == "42" {
				got = &posts[i]
			}
		}
		require.NotNil(t, got)
		assert.Equal(t, model.Post{ID: "42", Title: "B", Body: "c", Image: "http://y"}, *got)
	})

	t.Run("delete then list", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "42"))

		posts, err := c.List(ctx)
		require.NoError(t, err)
		for _, p := range posts {
			assert.NotEqual(t, "42", p.ID)
		}
	})
}
