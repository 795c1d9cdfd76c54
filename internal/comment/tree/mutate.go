package tree

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
)

// AddRoot prepends c to the roots: top-level comments are kept most recent
// first.
func (t Tree) AddRoot(c model.Comment) (Tree, error) {
	c, err := t.prepare(c, "")
	if err != nil {
		return t, err
	}

	roots := make([]model.Comment, 0, len(t.roots)+1)
	roots = append(roots, c)
	roots = append(roots, t.roots...)
	return Tree{roots: roots}, nil
}

// AddReply appends c to the replies of parentID, wherever it sits in the
// forest. Replies are kept oldest first.
func (t Tree) AddReply(parentID string, c model.Comment) (Tree, error) {
	if find(t.roots, parentID) == nil {
		return t, notFound(parentID)
	}
	c, err := t.prepare(c, parentID)
	if err != nil {
		return t, err
	}

	roots, _ := update(t.roots, parentID, func(p model.Comment) model.Comment {
		replies := make([]model.Comment, 0, len(p.Replies)+1)
		replies = append(replies, p.Replies...)
		p.Replies = append(replies, c)
		return p
	})
	return Tree{roots: roots}, nil
}

// Remove deletes id together with its whole subtree and reports how many
// comments went away. Replies are never re-parented.
func (t Tree) Remove(id string) (Tree, int, error) {
	roots, n, ok := remove(t.roots, id)
	if !ok {
		return t, 0, notFound(id)
	}
	return Tree{roots: roots}, n, nil
}

// SetLike adds userID to or removes it from the likes of id. Liking twice is a
// no-op, as is unliking a comment the user does not like; in both cases the
// receiver is returned as is.
func (t Tree) SetLike(id, userID string, action model.LikeAction) (Tree, error) {
	if !action.Valid() {
		return t, errors.WithMessagef(ErrInvalidOperation, "unknown like action %q", action)
	}
	if userID == "" {
		return t, errors.WithMessage(ErrInvalidOperation, "empty user id")
	}

	target := find(t.roots, id)
	if target == nil {
		return t, notFound(id)
	}
	liked := slices.Contains(target.Likes, userID)
	if liked == (action == model.ActionLike) {
		return t, nil
	}

	roots, _ := update(t.roots, id, func(c model.Comment) model.Comment {
		if action == model.ActionLike {
			c.Likes = append(slices.Clip(c.Likes), userID)
		} else {
			c.Likes = slices.DeleteFunc(slices.Clone(c.Likes), func(u string) bool { return u == userID })
		}
		return c
	})
	return Tree{roots: roots}, nil
}

// RenameAuthor sets AuthorName on every comment written by authorID and
// returns the number of comments that changed.
func (t Tree) RenameAuthor(authorID, name string) (Tree, int) {
	roots, n := rename(t.roots, authorID, name)
	if n == 0 {
		return t, 0
	}
	return Tree{roots: roots}, n
}

// prepare validates a comment about to be inserted under parentID.
func (t Tree) prepare(c model.Comment, parentID string) (model.Comment, error) {
	if c.ParentID != "" && c.ParentID != parentID {
		return c, errors.WithMessagef(ErrInvalidOperation, "comment %q declares parent %q, inserting under %q", c.ID, c.ParentID, parentID)
	}
	c.ParentID = parentID

	out, err := normalize([]model.Comment{c}, parentID, t.ids(), ErrInvalidOperation)
	if err != nil {
		return c, err
	}
	return out[0], nil
}

func (t Tree) ids() map[string]struct{} {
	seen := make(map[string]struct{})
	t.Walk(func(c model.Comment, _ int) bool {
		seen[c.ID] = struct{}{}
		return true
	})
	return seen
}

// update copies the chain of slices leading to id and replaces the target
// node with fn's result. Everything off that chain is shared.
func update(nodes []model.Comment, id string, fn func(model.Comment) model.Comment) ([]model.Comment, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := slices.Clone(nodes)
			out[i] = fn(nodes[i])
			return out, true
		}
		if replies, ok := update(nodes[i].Replies, id, fn); ok {
			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, true
		}
	}
	return nodes, false
}

func remove(nodes []model.Comment, id string) ([]model.Comment, int, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]model.Comment, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			out = append(out, nodes[i+1:]...)
			return out, CountDescendants(nodes[i]), true
		}
		if replies, n, ok := remove(nodes[i].Replies, id); ok {
			out := slices.Clone(nodes)
			out[i].Replies = replies
			return out, n, true
		}
	}
	return nodes, 0, false
}

func rename(nodes []model.Comment, authorID, name string) ([]model.Comment, int) {
	var out []model.Comment
	total := 0
	for i, c := range nodes {
		n := 0
		if c.AuthorID == authorID && c.AuthorName != name {
			c.AuthorName = name
			n++
		}
		if replies, m := rename(c.Replies, authorID, name); m > 0 {
			c.Replies = replies
			n += m
		}
		if n == 0 {
			continue
		}
		if out == nil {
			out = slices.Clone(nodes)
		}
		out[i] = c
		total += n
	}
	if out == nil {
		return nodes, 0
	}
	return out, total
}
