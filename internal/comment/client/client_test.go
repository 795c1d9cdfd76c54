package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "github.com/MyNameIsWhaaat/replytree/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/service"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/inmemory"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New(inmemory.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(handler.New(svc, zerolog.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, base string, user model.Author) *Client {
	t.Helper()
	c, err := New(base, 5*time.Second, user)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api", time.Second, model.Author{})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)
	ann := newClient(t, srv.URL+"/", model.Author{ID: "u1", Name: "Ann"})
	bob := newClient(t, srv.URL, model.Author{ID: "u2", Name: "Bob"})

	root, err := ann.CreateRoot(ctx, "p1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Ann", root.AuthorName)

	reply, err := bob.Reply(ctx, root.ID, "hi back")
	require.NoError(t, err)
	assert.Equal(t, root.ID, reply.ParentID)

	likes, err := bob.Like(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, likes)

	likes, err = bob.Unlike(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{}, likes)

	rep, err := bob.Report(ctx, root.ID, "off topic")
	require.NoError(t, err)
	assert.Equal(t, "off topic", rep.Reason)

	roots, err := ann.FetchThread(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, reply.ID, roots[0].Replies[0].ID)

	_, err = bob.Delete(ctx, root.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	n, err := ann.Delete(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStatusErrors(t *testing.T) {
	ctx := context.Background()
	srv := newAPI(t)
	anon := newClient(t, srv.URL, model.Author{})
	ann := newClient(t, srv.URL, model.Author{ID: "u1", Name: "Ann"})

	_, err := anon.CreateRoot(ctx, "p1", "hello")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = ann.CreateRoot(ctx, "p1", " ")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = ann.Reply(ctx, "missing", "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, "not found", se.Message)
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, model.Author{ID: "u1"})
	_, err := c.FetchThread(context.Background(), "p1")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, "upstream exploded", se.Message)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSendsIdentityHeaders(t *testing.T) {
	var gotID, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(handler.HeaderUserID)
		gotName = r.Header.Get(handler.HeaderUserName)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"likes":["u1"]}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, model.Author{ID: "u1", Name: "Ann"})
	likes, err := c.Like(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, likes)
	assert.Equal(t, "u1", gotID)
	assert.Equal(t, "Ann", gotName)
}
