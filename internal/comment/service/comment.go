package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/events"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
	"github.com/MyNameIsWhaaat/replytree/internal/metrics"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

const (
	maxContentLen = 2000
	maxReasonLen  = 500
	maxNameLen    = 100
)

type commentService struct {
	repo storage.Repository
	pub  events.Publisher
	log  zerolog.Logger
	now  func() time.Time
}

// New returns a service over repo. A nil publisher drops events.
func New(repo storage.Repository, pub events.Publisher, log zerolog.Logger) CommentService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &commentService{
		repo: repo,
		pub:  pub,
		log:  log.With().Str("component", "comment_service").Logger(),
		now:  time.Now,
	}
}

func (s *commentService) Thread(ctx context.Context, postID string) (tree.Tree, error) {
	if strings.TrimSpace(postID) == "" {
		return tree.Tree{}, ErrInvalidInput
	}
	t, err := s.repo.GetThread(ctx, postID)
	if err != nil {
		return tree.Tree{}, translate(err)
	}
	return t, nil
}

func (s *commentService) Subtree(ctx context.Context, id string) (model.Comment, error) {
	if strings.TrimSpace(id) == "" {
		return model.Comment{}, ErrInvalidInput
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Comment{}, translate(err)
	}
	return c, nil
}

func (s *commentService) Path(ctx context.Context, id string) ([]model.Comment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	items, err := s.repo.GetPath(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (s *commentService) CreateRoot(ctx context.Context, postID string, author model.Author, content string) (c model.Comment, err error) {
	defer func() { metrics.Mutation("create", err) }()

	if strings.TrimSpace(postID) == "" {
		return model.Comment{}, ErrInvalidInput
	}
	if err := validateAuthor(author); err != nil {
		return model.Comment{}, err
	}
	if err := validateText(content); err != nil {
		return model.Comment{}, err
	}

	c, err = s.repo.Create(ctx, newComment(postID, "", author, content))
	if err != nil {
		return model.Comment{}, translate(err)
	}
	s.publish(ctx, events.Event{Type: events.CommentCreated, CommentID: c.ID, PostID: c.PostID, ActorID: author.ID})
	return c, nil
}

func (s *commentService) Reply(ctx context.Context, parentID string, author model.Author, content string) (c model.Comment, err error) {
	defer func() { metrics.Mutation("reply", err) }()

	if strings.TrimSpace(parentID) == "" {
		return model.Comment{}, ErrInvalidInput
	}
	if err := validateAuthor(author); err != nil {
		return model.Comment{}, err
	}
	if err := validateText(content); err != nil {
		return model.Comment{}, err
	}

	ok, err := s.repo.Exists(ctx, parentID)
	if err != nil {
		return model.Comment{}, err
	}
	if !ok {
		return model.Comment{}, errors.WithMessagef(ErrNotFound, "parent %s", parentID)
	}

	c, err = s.repo.Create(ctx, newComment("", parentID, author, content))
	if err != nil {
		return model.Comment{}, translate(err)
	}
	s.publish(ctx, events.Event{Type: events.CommentCreated, CommentID: c.ID, PostID: c.PostID, ActorID: author.ID})
	return c, nil
}

func (s *commentService) Delete(ctx context.Context, id, actorID string) (n int, err error) {
	defer func() { metrics.Mutation("delete", err) }()

	if strings.TrimSpace(id) == "" || strings.TrimSpace(actorID) == "" {
		return 0, ErrInvalidInput
	}

	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, translate(err)
	}
	if target.AuthorID != actorID {
		return 0, errors.WithMessagef(ErrForbidden, "comment %s belongs to another author", id)
	}

	n, err = s.repo.DeleteSubtree(ctx, id)
	if err != nil {
		return 0, translate(err)
	}
	if n == 0 {
		return 0, errors.WithMessagef(ErrNotFound, "comment %s", id)
	}
	s.publish(ctx, events.Event{Type: events.CommentDeleted, CommentID: id, PostID: target.PostID, ActorID: actorID, Count: n})
	return n, nil
}

func (s *commentService) Like(ctx context.Context, id, userID string) ([]string, error) {
	return s.setLike(ctx, id, userID, model.ActionLike)
}

func (s *commentService) Unlike(ctx context.Context, id, userID string) ([]string, error) {
	return s.setLike(ctx, id, userID, model.ActionUnlike)
}

// setLike publishes only when the like set actually changed; repeats are
// counted as noops.
func (s *commentService) setLike(ctx context.Context, id, userID string, action model.LikeAction) (likes []string, err error) {
	changed := false
	defer func() {
		if err == nil && !changed {
			metrics.Noop(string(action))
			return
		}
		metrics.Mutation(string(action), err)
	}()

	if strings.TrimSpace(id) == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}

	likes, changed, err = s.repo.SetLike(ctx, id, userID, action)
	if err != nil {
		return nil, translate(err)
	}
	if !changed {
		return likes, nil
	}

	typ := events.CommentLiked
	if action == model.ActionUnlike {
		typ = events.CommentUnliked
	}
	s.publish(ctx, events.Event{Type: typ, CommentID: id, ActorID: userID, Count: len(likes)})
	return likes, nil
}

func (s *commentService) Report(ctx context.Context, id, reporterID, reason string) (rep model.Report, err error) {
	defer func() { metrics.Mutation("report", err) }()

	if strings.TrimSpace(id) == "" || strings.TrimSpace(reporterID) == "" {
		return model.Report{}, ErrInvalidInput
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > maxReasonLen {
		return model.Report{}, ErrInvalidInput
	}

	rep, err = s.repo.SaveReport(ctx, model.Report{CommentID: id, ReporterID: reporterID, Reason: reason})
	if err != nil {
		return model.Report{}, translate(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.CommentReported,
		CommentID: id,
		PostID:    rep.PostID,
		ActorID:   reporterID,
		Reason:    reason,
	})
	return rep, nil
}

func (s *commentService) Reports(ctx context.Context) ([]model.Report, error) {
	return s.repo.ListReports(ctx)
}

func (s *commentService) RenameAuthor(ctx context.Context, authorID, name string) (n int, err error) {
	defer func() { metrics.Mutation("rename", err) }()

	name = strings.TrimSpace(name)
	if strings.TrimSpace(authorID) == "" || name == "" || len(name) > maxNameLen {
		return 0, ErrInvalidInput
	}
	return s.repo.RenameAuthor(ctx, authorID, name)
}

func (s *commentService) publish(ctx context.Context, e events.Event) {
	e.At = s.now().UTC()
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Error().Err(err).
			Str("event", string(e.Type)).
			Str("comment_id", e.CommentID).
			Msg("publish event")
	}
}

func newComment(postID, parentID string, author model.Author, content string) model.Comment {
	name := strings.TrimSpace(author.Name)
	if name == "" {
		name = author.ID
	}
	return model.Comment{
		PostID:     postID,
		ParentID:   parentID,
		AuthorID:   author.ID,
		AuthorName: name,
		Content:    strings.TrimSpace(content),
	}
}

// translate maps storage and tree errors onto the service sentinels.
func translate(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, tree.ErrNotFound):
		return errors.WithMessage(ErrNotFound, err.Error())
	case errors.Is(err, tree.ErrInvalidOperation), errors.Is(err, tree.ErrMalformedInput):
		return errors.WithMessage(ErrInvalidInput, err.Error())
	}
	return err
}

func validateAuthor(a model.Author) error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrInvalidInput
	}
	return nil
}

func validateText(text string) error {
	t := strings.TrimSpace(text)
	if t == "" || len(t) > maxContentLen {
		return ErrInvalidInput
	}
	return nil
}
