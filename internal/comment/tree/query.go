package tree

import (
	"slices"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
)

// Entry is one comment of a flattened tree with its nesting depth, roots
// being at depth 0.
type Entry struct {
	Comment model.Comment
	Depth   int
}

// Roots returns the root comments, most recent first.
func (t Tree) Roots() []model.Comment {
	return slices.Clone(t.roots)
}

// Len is the number of root comments.
func (t Tree) Len() int {
	return len(t.roots)
}

// Find looks id up depth-first, visiting a node before its replies.
func (t Tree) Find(id string) (model.Comment, bool) {
	c := find(t.roots, id)
	if c == nil {
		return model.Comment{}, false
	}
	return *c, true
}

func (t Tree) Contains(id string) bool {
	return find(t.roots, id) != nil
}

// TotalCount is the number of comments in the forest, replies included.
func (t Tree) TotalCount() int {
	n := 0
	for _, r := range t.roots {
		n += CountDescendants(r)
	}
	return n
}

// CountDescendants counts c itself plus every nested reply.
func CountDescendants(c model.Comment) int {
	n := 1
	for _, r := range c.Replies {
		n += CountDescendants(r)
	}
	return n
}

// Walk visits the forest in pre-order. Returning false from fn stops the walk.
func (t Tree) Walk(fn func(c model.Comment, depth int) bool) {
	walk(t.roots, 0, fn)
}

func walk(nodes []model.Comment, depth int, fn func(model.Comment, int) bool) bool {
	for _, c := range nodes {
		if !fn(c, depth) {
			return false
		}
		if !walk(c.Replies, depth+1, fn) {
			return false
		}
	}
	return true
}

// Flatten lists the forest in pre-order along with each comment's depth.
func (t Tree) Flatten() []Entry {
	out := make([]Entry, 0, t.TotalCount())
	t.Walk(func(c model.Comment, depth int) bool {
		out = append(out, Entry{Comment: c, Depth: depth})
		return true
	})
	return out
}

// Path returns the chain of comments from the root down to id, inclusive.
func (t Tree) Path(id string) ([]model.Comment, error) {
	var path []model.Comment
	if !pathTo(t.roots, id, &path) {
		return nil, notFound(id)
	}
	slices.Reverse(path)
	return path, nil
}

func pathTo(nodes []model.Comment, id string, path *[]model.Comment) bool {
	for _, c := range nodes {
		if c.ID == id || pathTo(c.Replies, id, path) {
			*path = append(*path, c)
			return true
		}
	}
	return false
}

func (t Tree) HasLiked(id, userID string) bool {
	c := find(t.roots, id)
	return c != nil && slices.Contains(c.Likes, userID)
}

func (t Tree) IsAuthor(id, userID string) bool {
	c := find(t.roots, id)
	return c != nil && userID != "" && c.AuthorID == userID
}

// Clone returns a deep copy of c that shares no storage with any tree.
func Clone(c model.Comment) model.Comment {
	c.Likes = slices.Clone(c.Likes)
	if c.Replies != nil {
		replies := make([]model.Comment, len(c.Replies))
		for i, r := range c.Replies {
			replies[i] = Clone(r)
		}
		c.Replies = replies
	}
	return c
}

func find(nodes []model.Comment, id string) *model.Comment {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if c := find(nodes[i].Replies, id); c != nil {
			return c
		}
	}
	return nil
}
