// Package thread keeps a local copy of one post's comment thread in step
// with the server. Changes are applied locally only once the server has
// accepted them.
package thread

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

var (
	ErrEmptyContent = errors.New("comment is empty")
	ErrNotAuthor    = errors.New("only the author can delete this comment")
	ErrAlreadyLiked = errors.New("comment already liked")
	ErrNotLiked     = errors.New("comment not liked")
)

// API is the server side of a session. *client.Client satisfies it.
type API interface {
	FetchThread(ctx context.Context, postID string) ([]model.Comment, error)
	CreateRoot(ctx context.Context, postID, content string) (model.Comment, error)
	Reply(ctx context.Context, parentID, content string) (model.Comment, error)
	Delete(ctx context.Context, id string) (int, error)
	Like(ctx context.Context, id string) ([]string, error)
	Unlike(ctx context.Context, id string) ([]string, error)
	Report(ctx context.Context, id, reason string) (model.Report, error)
}

// Session is owned by a single view. The mutex guards only the swap of the
// tree value; server calls run without it.
type Session struct {
	api    API
	postID string
	user   model.Author
	notify Notifier
	log    zerolog.Logger

	mu   sync.RWMutex
	tree tree.Tree
}

// New builds a session for postID. A nil notify reports through log.
func New(api API, postID string, user model.Author, notify Notifier, log zerolog.Logger) *Session {
	if notify == nil {
		notify = LogNotifier{Log: log}
	}
	return &Session{
		api:    api,
		postID: postID,
		user:   user,
		notify: notify,
		log:    log.With().Str("post_id", postID).Logger(),
	}
}

func (s *Session) PostID() string { return s.postID }

func (s *Session) User() model.Author { return s.user }

func (s *Session) Tree() tree.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Load replaces the local thread with the server's copy.
func (s *Session) Load(ctx context.Context) error {
	roots, err := s.api.FetchThread(ctx, s.postID)
	if err != nil {
		s.notify.Error("Could not load comments")
		return errors.Wrap(err, "fetch thread")
	}

	t, err := tree.FromList(roots)
	if err != nil {
		s.notify.Error("Could not load comments")
		return err
	}

	s.mu.Lock()
	s.tree = t
	s.mu.Unlock()
	return nil
}

// Post adds a root comment. The server's copy is placed first in the thread.
func (s *Session) Post(ctx context.Context, content string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		s.notify.Info("Write something first")
		return model.Comment{}, ErrEmptyContent
	}

	c, err := s.api.CreateRoot(ctx, s.postID, content)
	if err != nil {
		s.notify.Error("Could not post comment")
		return model.Comment{}, errors.Wrap(err, "create comment")
	}

	return c, s.apply(ctx, func(t tree.Tree) (tree.Tree, error) {
		return t.AddRoot(c)
	})
}

func (s *Session) Reply(ctx context.Context, parentID, content string) (model.Comment, error) {
	if strings.TrimSpace(content) == "" {
		s.notify.Info("Write something first")
		return model.Comment{}, ErrEmptyContent
	}
	if !s.Tree().Contains(parentID) {
		s.notify.Error("That comment is gone")
		return model.Comment{}, errors.WithMessagef(tree.ErrNotFound, "comment %s", parentID)
	}

	c, err := s.api.Reply(ctx, parentID, content)
	if err != nil {
		s.notify.Error("Could not post reply")
		return model.Comment{}, errors.Wrap(err, "reply")
	}

	return c, s.apply(ctx, func(t tree.Tree) (tree.Tree, error) {
		return t.AddReply(parentID, c)
	})
}

// Delete removes the comment together with its replies.
func (s *Session) Delete(ctx context.Context, id string) error {
	if !s.CanDelete(id) {
		s.notify.Info("Only the author can delete this comment")
		return ErrNotAuthor
	}

	if _, err := s.api.Delete(ctx, id); err != nil {
		s.notify.Error("Could not delete comment")
		return errors.Wrap(err, "delete")
	}

	return s.apply(ctx, func(t tree.Tree) (tree.Tree, error) {
		next, _, err := t.Remove(id)
		return next, err
	})
}

func (s *Session) Like(ctx context.Context, id string) error {
	if s.HasLiked(id) {
		s.notify.Info("You already liked this comment")
		return ErrAlreadyLiked
	}
	return s.setLike(ctx, id, model.ActionLike)
}

func (s *Session) Unlike(ctx context.Context, id string) error {
	if !s.HasLiked(id) {
		return ErrNotLiked
	}
	return s.setLike(ctx, id, model.ActionUnlike)
}

func (s *Session) ToggleLike(ctx context.Context, id string) error {
	if s.HasLiked(id) {
		return s.Unlike(ctx, id)
	}
	return s.Like(ctx, id)
}

func (s *Session) setLike(ctx context.Context, id string, action model.LikeAction) error {
	var err error
	if action == model.ActionLike {
		_, err = s.api.Like(ctx, id)
	} else {
		_, err = s.api.Unlike(ctx, id)
	}
	if err != nil {
		s.notify.Error("Could not update like")
		return errors.Wrapf(err, "%s", action)
	}

	return s.apply(ctx, func(t tree.Tree) (tree.Tree, error) {
		return t.SetLike(id, s.user.ID, action)
	})
}

// Report flags a comment for moderation. The thread itself is unchanged.
func (s *Session) Report(ctx context.Context, id, reason string) error {
	if _, err := s.api.Report(ctx, id, reason); err != nil {
		s.notify.Error("Could not send report")
		return errors.Wrap(err, "report")
	}
	s.notify.Info("Thanks, a moderator will take a look")
	return nil
}

func (s *Session) CanDelete(id string) bool {
	return s.Tree().IsAuthor(id, s.user.ID)
}

func (s *Session) HasLiked(id string) bool {
	return s.Tree().HasLiked(id, s.user.ID)
}

// apply runs fn against the current tree after the server accepted a change.
// If the local tree cannot take the change it has drifted from the server and
// is reloaded.
func (s *Session) apply(ctx context.Context, fn func(tree.Tree) (tree.Tree, error)) error {
	s.mu.Lock()
	next, err := fn(s.tree)
	if err == nil {
		s.tree = next
	}
	s.mu.Unlock()

	if err == nil {
		return nil
	}

	s.log.Warn().Err(err).Msg("local thread out of sync, reloading")
	return s.Load(ctx)
}
