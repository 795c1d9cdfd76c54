package thread

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/client"
	handler "github.com/MyNameIsWhaaat/replytree/internal/comment/handler/http"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/service"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage/inmemory"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

type notes struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (n *notes) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *notes) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

// fakeAPI answers with the funcs that are set and fails the rest.
type fakeAPI struct {
	fetch      func(postID string) ([]model.Comment, error)
	createRoot func(postID, content string) (model.Comment, error)
	reply      func(parentID, content string) (model.Comment, error)
	del        func(id string) (int, error)
	like       func(id string) ([]string, error)
	unlike     func(id string) ([]string, error)
	report     func(id, reason string) (model.Report, error)
	fetches    int
}

var errUnset = errors.New("not wired")

func (f *fakeAPI) FetchThread(_ context.Context, postID string) ([]model.Comment, error) {
	f.fetches++
	if f.fetch == nil {
		return nil, errUnset
	}
	return f.fetch(postID)
}

func (f *fakeAPI) CreateRoot(_ context.Context, postID, content string) (model.Comment, error) {
	if f.createRoot == nil {
		return model.Comment{}, errUnset
	}
	return f.createRoot(postID, content)
}

func (f *fakeAPI) Reply(_ context.Context, parentID, content string) (model.Comment, error) {
	if f.reply == nil {
		return model.Comment{}, errUnset
	}
	return f.reply(parentID, content)
}

func (f *fakeAPI) Delete(_ context.Context, id string) (int, error) {
	if f.del == nil {
		return 0, errUnset
	}
	return f.del(id)
}

func (f *fakeAPI) Like(_ context.Context, id string) ([]string, error) {
	if f.like == nil {
		return nil, errUnset
	}
	return f.like(id)
}

func (f *fakeAPI) Unlike(_ context.Context, id string) ([]string, error) {
	if f.unlike == nil {
		return nil, errUnset
	}
	return f.unlike(id)
}

func (f *fakeAPI) Report(_ context.Context, id, reason string) (model.Report, error) {
	if f.report == nil {
		return model.Report{}, errUnset
	}
	return f.report(id, reason)
}

var me = model.Author{ID: "u1", Name: "Ann"}

func node(id, author string, replies ...model.Comment) model.Comment {
	if replies == nil {
		replies = []model.Comment{}
	}
	return model.Comment{ID: id, AuthorID: author, Content: "c-" + id, Likes: []string{}, Replies: replies}
}

func loaded(t *testing.T, api *fakeAPI, roots ...model.Comment) (*Session, *notes) {
	t.Helper()
	if api.fetch == nil {
		api.fetch = func(string) ([]model.Comment, error) { return roots, nil }
	}
	n := &notes{}
	s := New(api, "p1", me, n, zerolog.Nop())
	require.NoError(t, s.Load(context.Background()))
	return s, n
}

func TestLoadFailureKeepsTree(t *testing.T) {
	api := &fakeAPI{}
	s, n := loaded(t, api, node("1", "u1"))

	api.fetch = func(string) ([]model.Comment, error) { return nil, errors.New("offline") }
	require.Error(t, s.Load(context.Background()))

	assert.True(t, s.Tree().Contains("1"))
	assert.Len(t, n.errs, 1)
}

func TestLoadRejectsMalformedThread(t *testing.T) {
	api := &fakeAPI{fetch: func(string) ([]model.Comment, error) {
		return []model.Comment{node("1", "u1"), node("1", "u2")}, nil
	}}
	s := New(api, "p1", me, &notes{}, zerolog.Nop())

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, tree.ErrMalformedInput)
}

func TestPostPrependsServerCopy(t *testing.T) {
	api := &fakeAPI{createRoot: func(postID, content string) (model.Comment, error) {
		c := node("srv-9", "u1")
		c.Content = content
		return c, nil
	}}
	s, _ := loaded(t, api, node("1", "u2"))

	c, err := s.Post(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "srv-9", c.ID)

	roots := s.Tree().Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "srv-9", roots[0].ID)
	assert.Equal(t, "fresh", roots[0].Content)
}

func TestPostValidationAndFailure(t *testing.T) {
	api := &fakeAPI{}
	s, n := loaded(t, api, node("1", "u2"))

	_, err := s.Post(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Len(t, n.infos, 1)

	_, err = s.Post(context.Background(), "hello")
	assert.ErrorIs(t, err, errUnset)
	assert.Len(t, n.errs, 1)
	assert.Equal(t, 1, s.Tree().TotalCount())
}

func TestReplyAppends(t *testing.T) {
	api := &fakeAPI{reply: func(parentID, content string) (model.Comment, error) {
		return node("2", "u1"), nil
	}}
	s, _ := loaded(t, api, node("1", "u2", node("0", "u3")))

	_, err := s.Reply(context.Background(), "1", "hi")
	require.NoError(t, err)

	parent, ok := s.Tree().Find("1")
	require.True(t, ok)
	require.Len(t, parent.Replies, 2)
	assert.Equal(t, "2", parent.Replies[1].ID)
	assert.Equal(t, "1", parent.Replies[1].ParentID)
}

func TestReplyToUnknownCommentSkipsServer(t *testing.T) {
	called := false
	api := &fakeAPI{reply: func(string, string) (model.Comment, error) {
		called = true
		return model.Comment{}, nil
	}}
	s, _ := loaded(t, api, node("1", "u2"))

	_, err := s.Reply(context.Background(), "nope", "hi")
	assert.ErrorIs(t, err, tree.ErrNotFound)
	assert.False(t, called)
}

func TestDeleteOnlyAfterConfirmation(t *testing.T) {
	api := &fakeAPI{}
	s, n := loaded(t, api, node("1", "u1", node("2", "u2")), node("3", "u2"))

	err := s.Delete(context.Background(), "3")
	assert.ErrorIs(t, err, ErrNotAuthor)
	assert.Len(t, n.infos, 1)

	err = s.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, s.Tree().Contains("1"))
	assert.Len(t, n.errs, 1)

	api.del = func(string) (int, error) { return 2, nil }
	require.NoError(t, s.Delete(context.Background(), "1"))
	assert.False(t, s.Tree().Contains("1"))
	assert.False(t, s.Tree().Contains("2"))
	assert.True(t, s.Tree().Contains("3"))
}

func TestLikeFlow(t *testing.T) {
	api := &fakeAPI{
		like:   func(string) ([]string, error) { return []string{"u1"}, nil },
		unlike: func(string) ([]string, error) { return []string{}, nil },
	}
	s, n := loaded(t, api, node("1", "u2"))
	ctx := context.Background()

	require.NoError(t, s.Like(ctx, "1"))
	assert.True(t, s.HasLiked("1"))

	assert.ErrorIs(t, s.Like(ctx, "1"), ErrAlreadyLiked)
	assert.Len(t, n.infos, 1)

	require.NoError(t, s.ToggleLike(ctx, "1"))
	assert.False(t, s.HasLiked("1"))

	assert.ErrorIs(t, s.Unlike(ctx, "1"), ErrNotLiked)

	require.NoError(t, s.ToggleLike(ctx, "1"))
	c, _ := s.Tree().Find("1")
	assert.Equal(t, []string{"u1"}, c.Likes)
}

func TestLikeFailureLeavesTree(t *testing.T) {
	api := &fakeAPI{}
	s, n := loaded(t, api, node("1", "u2"))

	require.Error(t, s.Like(context.Background(), "1"))
	assert.False(t, s.HasLiked("1"))
	assert.Len(t, n.errs, 1)
}

func TestDesyncReloads(t *testing.T) {
	api := &fakeAPI{}
	s, _ := loaded(t, api, node("1", "u1"))

	// The server already knows the comment under an id the local copy uses.
	api.createRoot = func(string, string) (model.Comment, error) { return node("1", "u1"), nil }
	api.fetch = func(string) ([]model.Comment, error) {
		return []model.Comment{node("1", "u1"), node("0", "u9")}, nil
	}

	_, err := s.Post(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, 2, api.fetches)
	assert.Equal(t, 2, s.Tree().TotalCount())
}

func TestReport(t *testing.T) {
	var got string
	api := &fakeAPI{report: func(id, reason string) (model.Report, error) {
		got = reason
		return model.Report{ID: "r1", CommentID: id, Reason: reason}, nil
	}}
	s, n := loaded(t, api, node("1", "u2"))

	require.NoError(t, s.Report(context.Background(), "1", "spam"))
	assert.Equal(t, "spam", got)
	assert.Len(t, n.infos, 1)
	assert.Equal(t, 1, s.Tree().TotalCount())
}

func TestSessionAgainstServer(t *testing.T) {
	ctx := context.Background()
	svc := service.New(inmemory.New(), nil, zerolog.Nop())
	srv := httptest.NewServer(handler.New(svc, zerolog.Nop()).Routes())
	defer srv.Close()

	annAPI, err := client.New(srv.URL, 5*time.Second, me)
	require.NoError(t, err)
	bob := model.Author{ID: "u2", Name: "Bob"}
	bobAPI, err := client.New(srv.URL, 5*time.Second, bob)
	require.NoError(t, err)

	ann := New(annAPI, "p1", me, &notes{}, zerolog.Nop())
	require.NoError(t, ann.Load(ctx))
	assert.Zero(t, ann.Tree().TotalCount())

	root, err := ann.Post(ctx, "first")
	require.NoError(t, err)
	_, err = ann.Reply(ctx, root.ID, "second")
	require.NoError(t, err)

	other := New(bobAPI, "p1", bob, &notes{}, zerolog.Nop())
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, 2, other.Tree().TotalCount())
	assert.False(t, other.CanDelete(root.ID))
	require.NoError(t, other.Like(ctx, root.ID))

	require.NoError(t, ann.Load(ctx))
	c, _ := ann.Tree().Find(root.ID)
	assert.Equal(t, []string{"u2"}, c.Likes)

	require.NoError(t, ann.Delete(ctx, root.ID))
	assert.Zero(t, ann.Tree().TotalCount())

	// Bob's copy is stale; the server rejects the like and his tree stays put.
	err = other.Unlike(ctx, root.ID)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Equal(t, 2, other.Tree().TotalCount())
}

func TestNilNotifierFallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	api := &fakeAPI{}
	s := New(api, "p1", me, nil, zerolog.New(&buf))

	require.NotPanics(t, func() {
		err := s.Load(context.Background())
		assert.ErrorIs(t, err, errUnset)
	})
	assert.Contains(t, buf.String(), "Could not load comments")
	assert.Contains(t, buf.String(), `"level":"error"`)
}
