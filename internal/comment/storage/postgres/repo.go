package postgres

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

var commentColumns = []string{"id", "post_id", "parent_id", "author_id", "author_name", "content", "created_at"}

type Repo struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(db *sql.DB) *Repo {
	return &Repo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(s scanner) (model.Comment, error) {
	var (
		c      model.Comment
		parent sql.NullString
	)
	if err := s.Scan(&c.ID, &c.PostID, &parent, &c.AuthorID, &c.AuthorName, &c.Content, &c.CreatedAt); err != nil {
		return model.Comment{}, err
	}
	c.ParentID = parent.String
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.PostID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repo) PostID(ctx context.Context, id string) (string, error) {
	query, args, err := r.sb.Select("post_id").From("comments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return "", err
	}

	var postID string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&postID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "postgres: post id")
	}
	return postID, nil
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	parent := sql.NullString{String: c.ParentID, Valid: c.ParentID != ""}
	if parent.Valid {
		postID, err := r.PostID(ctx, c.ParentID)
		if err != nil {
			return model.Comment{}, err
		}
		c.PostID = postID
	}

	query, args, err := r.sb.Insert("comments").
		Columns("post_id", "parent_id", "author_id", "author_name", "content").
		Values(c.PostID, parent, c.AuthorID, c.AuthorName, c.Content).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return model.Comment{}, err
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		return model.Comment{}, errors.Wrap(err, "postgres: insert comment")
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.Likes = []string{}
	c.Replies = []model.Comment{}
	return c, nil
}

func (r *Repo) GetThread(ctx context.Context, postID string) (tree.Tree, error) {
	query, args, err := r.sb.Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return tree.Tree{}, err
	}

	rows, err := r.queryComments(ctx, query, args...)
	if err != nil {
		return tree.Tree{}, err
	}
	if len(rows) == 0 {
		return tree.Tree{}, nil
	}

	likes, err := r.likesFor(ctx, sq.Expr("comment_id IN (SELECT id FROM comments WHERE post_id = ?)", postID))
	if err != nil {
		return tree.Tree{}, err
	}

	return assemble(rows, likes)
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	rows, err := r.queryComments(ctx, `
		WITH RECURSIVE t AS (
			SELECT id, post_id, parent_id, author_id, author_name, content, created_at
			FROM comments
			WHERE id = $1

			UNION ALL

			SELECT c.id, c.post_id, c.parent_id, c.author_id, c.author_name, c.content, c.created_at
			FROM comments c
			JOIN t ON c.parent_id = t.id
		)
		SELECT id, post_id, parent_id, author_id, author_name, content, created_at
		FROM t
		ORDER BY created_at ASC, id ASC
	`, id)
	if err != nil {
		return model.Comment{}, err
	}
	if len(rows) == 0 {
		return model.Comment{}, storage.ErrNotFound
	}

	likes, err := r.likesFor(ctx, sq.Eq{"comment_id": commentIDs(rows)})
	if err != nil {
		return model.Comment{}, err
	}

	// the subtree root is detached so it assembles as a root
	parentID := ""
	for i := range rows {
		if rows[i].ID == id {
			parentID = rows[i].ParentID
			rows[i].ParentID = ""
		}
	}

	t, err := assemble(rows, likes)
	if err != nil {
		return model.Comment{}, err
	}
	c, ok := t.Find(id)
	if !ok {
		return model.Comment{}, storage.ErrNotFound
	}
	c.ParentID = parentID
	return c, nil
}

func (r *Repo) GetPath(ctx context.Context, id string) ([]model.Comment, error) {
	rows, err := r.queryComments(ctx, `
		WITH RECURSIVE p AS (
			SELECT id, post_id, parent_id, author_id, author_name, content, created_at, 0 AS depth
			FROM comments
			WHERE id = $1
			UNION ALL
			SELECT c.id, c.post_id, c.parent_id, c.author_id, c.author_name, c.content, c.created_at, p.depth + 1
			FROM comments c
			JOIN p ON c.id = p.parent_id
		)
		SELECT id, post_id, parent_id, author_id, author_name, content, created_at
		FROM p
		ORDER BY depth DESC
	`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}

	likes, err := r.likesFor(ctx, sq.Eq{"comment_id": commentIDs(rows)})
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Likes = append([]string{}, likes[rows[i].ID]...)
		rows[i].Replies = []model.Comment{}
	}
	return rows, nil
}

func (r *Repo) DeleteSubtree(ctx context.Context, id string) (int, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE t AS (
			SELECT id FROM comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM comments c JOIN t ON c.parent_id = t.id
		)
		DELETE FROM comments
		WHERE id IN (SELECT id FROM t)
		RETURNING id
	`, id)
	if err != nil {
		return 0, errors.Wrap(err, "postgres: delete subtree")
	}
	defer rows.Close()

	deleted := 0
	for rows.Next() {
		deleted++
	}
	if err := rows.Err(); err != nil {
		return 0, errors.Wrap(err, "postgres: delete subtree")
	}
	return deleted, nil
}

func (r *Repo) SetLike(ctx context.Context, id, userID string, action model.LikeAction) ([]string, bool, error) {
	ok, err := r.Exists(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, storage.ErrNotFound
	}

	stmt, err := r.likeStatement(id, userID, action)
	if err != nil {
		return nil, false, err
	}
	query, args, err := stmt.ToSql()
	if err != nil {
		return nil, false, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, false, errors.Wrapf(err, "postgres: %s", action)
	}
	// ON CONFLICT DO NOTHING and a DELETE of a missing row both affect 0 rows
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, errors.Wrapf(err, "postgres: %s", action)
	}

	likes, err := r.likesFor(ctx, sq.Eq{"comment_id": id})
	if err != nil {
		return nil, false, err
	}
	return append([]string{}, likes[id]...), n > 0, nil
}

// likeStatement makes like an idempotent insert; the composite primary key
// keeps likes a set.
func (r *Repo) likeStatement(id, userID string, action model.LikeAction) (sq.Sqlizer, error) {
	switch action {
	case model.ActionLike:
		return r.sb.Insert("comment_likes").
			Columns("comment_id", "user_id").
			Values(id, userID).
			Suffix("ON CONFLICT (comment_id, user_id) DO NOTHING"), nil
	case model.ActionUnlike:
		return r.sb.Delete("comment_likes").
			Where(sq.Eq{"comment_id": id, "user_id": userID}), nil
	default:
		return nil, errors.WithMessagef(tree.ErrInvalidOperation, "unknown like action %q", action)
	}
}

func (r *Repo) RenameAuthor(ctx context.Context, authorID, name string) (int, error) {
	query, args, err := r.sb.Update("comments").
		Set("author_name", name).
		Where(sq.Eq{"author_id": authorID}).
		Where(sq.NotEq{"author_name": name}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "postgres: rename author")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "postgres: rename author")
	}
	return int(n), nil
}

func (r *Repo) SaveReport(ctx context.Context, rep model.Report) (model.Report, error) {
	postID, err := r.PostID(ctx, rep.CommentID)
	if err != nil {
		return model.Report{}, err
	}
	rep.PostID = postID

	query, args, err := r.sb.Insert("comment_reports").
		Columns("comment_id", "post_id", "reporter_id", "reason").
		Values(rep.CommentID, rep.PostID, rep.ReporterID, rep.Reason).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return model.Report{}, err
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&rep.ID, &rep.CreatedAt); err != nil {
		return model.Report{}, errors.Wrap(err, "postgres: insert report")
	}
	rep.CreatedAt = rep.CreatedAt.UTC()
	return rep, nil
}

func (r *Repo) ListReports(ctx context.Context) ([]model.Report, error) {
	query, args, err := r.sb.Select("id", "comment_id", "post_id", "reporter_id", "reason", "created_at").
		From("comment_reports").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	out := make([]model.Report, 0)
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(&rep.ID, &rep.CommentID, &rep.PostID, &rep.ReporterID, &rep.Reason, &rep.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "postgres: scan report")
		}
		rep.CreatedAt = rep.CreatedAt.UTC()
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: list reports")
	}
	return out, nil
}

func (r *Repo) queryComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: query comments")
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "postgres: scan comment")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: query comments")
	}
	return out, nil
}

// likesFor returns the user ids per comment, oldest like first.
func (r *Repo) likesFor(ctx context.Context, where sq.Sqlizer) (map[string][]string, error) {
	query, args, err := r.sb.Select("comment_id", "user_id").
		From("comment_likes").
		Where(where).
		OrderBy("created_at ASC", "user_id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: query likes")
	}
	defer rows.Close()

	likes := make(map[string][]string)
	for rows.Next() {
		var commentID, userID string
		if err := rows.Scan(&commentID, &userID); err != nil {
			return nil, errors.Wrap(err, "postgres: scan like")
		}
		likes[commentID] = append(likes[commentID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "postgres: query likes")
	}
	return likes, nil
}

// assemble turns rows ordered oldest first into a thread: roots newest first,
// replies oldest first.
func assemble(rows []model.Comment, likes map[string][]string) (tree.Tree, error) {
	ordered := make([]model.Comment, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].ParentID == "" {
			ordered = append(ordered, rows[i])
		}
	}
	for _, c := range rows {
		if c.ParentID != "" {
			ordered = append(ordered, c)
		}
	}
	for i := range ordered {
		ordered[i].Likes = likes[ordered[i].ID]
	}
	return tree.FromFlat(ordered)
}

func commentIDs(rows []model.Comment) []string {
	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	return ids
}
