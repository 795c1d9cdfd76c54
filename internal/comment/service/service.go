package service

import (
	"context"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

type CommentService interface {
	Thread(ctx context.Context, postID string) (tree.Tree, error)
	Subtree(ctx context.Context, id string) (model.Comment, error)
	Path(ctx context.Context, id string) ([]model.Comment, error)

	CreateRoot(ctx context.Context, postID string, author model.Author, content string) (model.Comment, error)
	Reply(ctx context.Context, parentID string, author model.Author, content string) (model.Comment, error)
	// Delete removes the comment and all of its replies. Only the author may delete.
	Delete(ctx context.Context, id, actorID string) (deleted int, err error)
	Like(ctx context.Context, id, userID string) (likes []string, err error)
	Unlike(ctx context.Context, id, userID string) (likes []string, err error)

	Report(ctx context.Context, id, reporterID, reason string) (model.Report, error)
	Reports(ctx context.Context) ([]model.Report, error)
	RenameAuthor(ctx context.Context, authorID, name string) (updated int, err error)
}
