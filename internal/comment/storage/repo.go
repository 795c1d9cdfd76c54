package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

var ErrNotFound = errors.New("not found")

// Repository persists the comment threads of all posts. Create assigns ID and
// CreatedAt; a comment with a ParentID inherits the parent's post. Path
// entries carry no replies.
type Repository interface {
	Exists(ctx context.Context, id string) (bool, error)
	PostID(ctx context.Context, id string) (string, error)
	Get(ctx context.Context, id string) (model.Comment, error)
	GetPath(ctx context.Context, id string) ([]model.Comment, error)
	GetThread(ctx context.Context, postID string) (tree.Tree, error)
	Create(ctx context.Context, c model.Comment) (model.Comment, error)
	DeleteSubtree(ctx context.Context, id string) (int, error)
	SetLike(ctx context.Context, id, userID string, action model.LikeAction) (likes []string, changed bool, err error)
	RenameAuthor(ctx context.Context, authorID, name string) (int, error)
	SaveReport(ctx context.Context, r model.Report) (model.Report, error)
	ListReports(ctx context.Context) ([]model.Report, error)
}
