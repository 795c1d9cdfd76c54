package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

func row(id, parent string, minute int) model.Comment {
	return model.Comment{
		ID:        id,
		PostID:    "p1",
		ParentID:  parent,
		AuthorID:  "a",
		Content:   id,
		CreatedAt: time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC),
	}
}

func TestAssembleOrdersRootsNewestFirstAndRepliesOldestFirst(t *testing.T) {
	rows := []model.Comment{
		row("r1", "", 0),
		row("c1", "r1", 1),
		row("r2", "", 2),
		row("c2", "r1", 3),
		row("c3", "c1", 4),
	}
	likes := map[string][]string{"c1": {"u1", "u2"}}

	tr, err := assemble(rows, likes)
	require.NoError(t, err)

	roots := tr.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "r2", roots[0].ID)
	assert.Equal(t, "r1", roots[1].ID)

	require.Len(t, roots[1].Replies, 2)
	assert.Equal(t, "c1", roots[1].Replies[0].ID)
	assert.Equal(t, "c2", roots[1].Replies[1].ID)
	assert.Equal(t, []string{"u1", "u2"}, roots[1].Replies[0].Likes)
	assert.Equal(t, 5, tr.TotalCount())
}

func TestAssembleRejectsOrphans(t *testing.T) {
	_, err := assemble([]model.Comment{row("c1", "gone", 0)}, nil)
	require.ErrorIs(t, err, tree.ErrMalformedInput)
}

func TestLikeStatement(t *testing.T) {
	r := New(nil)

	stmt, err := r.likeStatement("c1", "u1", model.ActionLike)
	require.NoError(t, err)
	query, args, err := stmt.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "INSERT INTO comment_likes (comment_id,user_id) VALUES ($1,$2)")
	assert.Contains(t, query, "ON CONFLICT (comment_id, user_id) DO NOTHING")
	assert.Equal(t, []any{"c1", "u1"}, args)

	stmt, err = r.likeStatement("c1", "u1", model.ActionUnlike)
	require.NoError(t, err)
	query, args, err = stmt.ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "DELETE FROM comment_likes WHERE")
	assert.Contains(t, query, "comment_id = $1")
	assert.Contains(t, query, "user_id = $2")
	assert.Equal(t, []any{"c1", "u1"}, args)

	_, err = r.likeStatement("c1", "u1", model.LikeAction("boo"))
	require.ErrorIs(t, err, tree.ErrInvalidOperation)
}
