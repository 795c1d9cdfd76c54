// Package tree holds the comment forest of a single post and the pure
// operations over it. A Tree is never modified in place: every mutation
// returns a new Tree that shares all untouched subtrees with its input, so
// values returned by queries must be treated as read-only.
package tree

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
)

// Tree is an ordered sequence of root comments. The zero value is an empty
// tree ready to use.
type Tree struct {
	roots []model.Comment
}

// FromList builds a tree from root comments carrying their replies nested,
// the shape the backend returns. The input is copied. Ids must be non-empty
// and unique across the forest, and an explicit ParentID must match the
// position of the comment; missing ParentIDs are filled in and duplicate
// likes are collapsed.
func FromList(roots []model.Comment) (Tree, error) {
	out, err := normalize(roots, "", make(map[string]struct{}), ErrMalformedInput)
	if err != nil {
		return Tree{}, err
	}
	return Tree{roots: out}, nil
}

// FromFlat builds a tree from comments linked only by ParentID. Siblings keep
// their relative input order. Replies carried by the rows are ignored.
func FromFlat(rows []model.Comment) (Tree, error) {
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return Tree{}, errors.WithMessagef(ErrMalformedInput, "row %d has no id", i)
		}
		if _, dup := index[r.ID]; dup {
			return Tree{}, errors.WithMessagef(ErrMalformedInput, "duplicate id %q", r.ID)
		}
		index[r.ID] = i
	}

	children := make(map[string][]int, len(rows))
	roots := make([]int, 0, len(rows))
	for i, r := range rows {
		if r.ParentID == "" {
			roots = append(roots, i)
			continue
		}
		if _, ok := index[r.ParentID]; !ok {
			return Tree{}, errors.WithMessagef(ErrMalformedInput, "parent %q of %q not found", r.ParentID, r.ID)
		}
		children[r.ParentID] = append(children[r.ParentID], i)
	}

	// rows caught in a parent cycle are unreachable from any root and stay unvisited
	visited := make([]bool, len(rows))
	var build func(i int) model.Comment
	build = func(i int) model.Comment {
		visited[i] = true
		c := rows[i]
		c.Likes = uniqueLikes(c.Likes)
		kids := children[c.ID]
		c.Replies = make([]model.Comment, 0, len(kids))
		for _, k := range kids {
			c.Replies = append(c.Replies, build(k))
		}
		return c
	}

	out := make([]model.Comment, 0, len(roots))
	for _, i := range roots {
		out = append(out, build(i))
	}
	for i, ok := range visited {
		if !ok {
			return Tree{}, errors.WithMessagef(ErrMalformedInput, "comment %q is part of a parent cycle", rows[i].ID)
		}
	}

	return Tree{roots: out}, nil
}

func (t Tree) MarshalJSON() ([]byte, error) {
	if t.roots == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.roots)
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	var roots []model.Comment
	if err := json.Unmarshal(data, &roots); err != nil {
		return err
	}
	parsed, err := FromList(roots)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// normalize copies nodes, checking ids against seen and filling ParentID.
// Violations are reported wrapped in kind.
func normalize(nodes []model.Comment, parentID string, seen map[string]struct{}, kind error) ([]model.Comment, error) {
	out := make([]model.Comment, 0, len(nodes))
	for _, c := range nodes {
		if c.ID == "" {
			return nil, errors.WithMessage(kind, "comment without id")
		}
		if _, dup := seen[c.ID]; dup {
			return nil, errors.WithMessagef(kind, "duplicate id %q", c.ID)
		}
		seen[c.ID] = struct{}{}

		if c.ParentID != "" && c.ParentID != parentID {
			return nil, errors.WithMessagef(kind, "comment %q declares parent %q but sits under %q", c.ID, c.ParentID, parentID)
		}
		c.ParentID = parentID
		c.Likes = uniqueLikes(c.Likes)

		replies, err := normalize(c.Replies, c.ID, seen, kind)
		if err != nil {
			return nil, err
		}
		c.Replies = replies
		out = append(out, c)
	}
	return out, nil
}

func uniqueLikes(likes []string) []string {
	out := make([]string, 0, len(likes))
	seen := make(map[string]struct{}, len(likes))
	for _, u := range likes {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
