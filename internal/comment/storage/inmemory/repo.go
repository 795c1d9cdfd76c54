package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

type Repo struct {
	mu sync.RWMutex

	threads map[string]tree.Tree
	postOf  map[string]string
	reports []model.Report

	now   func() time.Time
	newID func() string
}

func New() *Repo {
	return &Repo{
		threads: make(map[string]tree.Tree),
		postOf:  make(map[string]string),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.postOf[id]
	return ok, nil
}

func (r *Repo) PostID(ctx context.Context, id string) (string, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	postID, ok := r.postOf[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return postID, nil
}

func (r *Repo) Get(ctx context.Context, id string) (model.Comment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.findLocked(id)
	if !ok {
		return model.Comment{}, storage.ErrNotFound
	}
	return tree.Clone(c), nil
}

func (r *Repo) GetPath(ctx context.Context, id string) ([]model.Comment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	postID, ok := r.postOf[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	path, err := r.threads[postID].Path(id)
	if err != nil {
		return nil, storage.ErrNotFound
	}

	out := make([]model.Comment, 0, len(path))
	for _, c := range path {
		c = tree.Clone(c)
		c.Replies = []model.Comment{}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repo) GetThread(ctx context.Context, postID string) (tree.Tree, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threads[postID], nil
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c.ID = r.newID()
	c.CreatedAt = r.now().UTC()
	c.Likes = []string{}
	c.Replies = []model.Comment{}

	var (
		t   tree.Tree
		err error
	)
	if c.ParentID == "" {
		t, err = r.threads[c.PostID].AddRoot(c)
	} else {
		postID, ok := r.postOf[c.ParentID]
		if !ok {
			return model.Comment{}, storage.ErrNotFound
		}
		c.PostID = postID
		t, err = r.threads[postID].AddReply(c.ParentID, c)
	}
	if err != nil {
		return model.Comment{}, err
	}

	r.threads[c.PostID] = t
	r.postOf[c.ID] = c.PostID

	created, _ := t.Find(c.ID)
	return tree.Clone(created), nil
}

func (r *Repo) DeleteSubtree(ctx context.Context, id string) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	postID, ok := r.postOf[id]
	if !ok {
		return 0, nil
	}

	t := r.threads[postID]
	node, _ := t.Find(id)

	t, n, err := t.Remove(id)
	if err != nil {
		return 0, err
	}

	stack := []model.Comment{node}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		delete(r.postOf, c.ID)
		stack = append(stack, c.Replies...)
	}

	if t.Len() == 0 {
		delete(r.threads, postID)
	} else {
		r.threads[postID] = t
	}
	return n, nil
}

func (r *Repo) SetLike(ctx context.Context, id, userID string, action model.LikeAction) ([]string, bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	postID, ok := r.postOf[id]
	if !ok {
		return nil, false, storage.ErrNotFound
	}

	before := r.threads[postID]
	t, err := before.SetLike(id, userID, action)
	if err != nil {
		return nil, false, err
	}
	r.threads[postID] = t

	c, _ := t.Find(id)
	changed := before.HasLiked(id, userID) != t.HasLiked(id, userID)
	return append([]string{}, c.Likes...), changed, nil
}

func (r *Repo) RenameAuthor(ctx context.Context, authorID, name string) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for postID, t := range r.threads {
		renamed, n := t.RenameAuthor(authorID, name)
		if n > 0 {
			r.threads[postID] = renamed
			total += n
		}
	}
	return total, nil
}

func (r *Repo) SaveReport(ctx context.Context, rep model.Report) (model.Report, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	postID, ok := r.postOf[rep.CommentID]
	if !ok {
		return model.Report{}, storage.ErrNotFound
	}

	rep.ID = r.newID()
	rep.PostID = postID
	rep.CreatedAt = r.now().UTC()
	r.reports = append(r.reports, rep)
	return rep, nil
}

// ListReports returns reports newest first.
func (r *Repo) ListReports(ctx context.Context) ([]model.Report, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := append([]model.Report{}, r.reports...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) findLocked(id string) (model.Comment, bool) {
	postID, ok := r.postOf[id]
	if !ok {
		return model.Comment{}, false
	}
	return r.threads[postID].Find(id)
}
