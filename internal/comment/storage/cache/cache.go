// Package cache keeps assembled threads in Redis in front of another
// repository. Threads are cached whole per post and dropped on any write
// that touches the post.
//
// Every invalidation also bumps a generation counter, one per post plus a
// global one for writes that span posts. A read-through fill records the
// generations before reading the store and only keeps its entry while they
// are unchanged, so a thread read before a concurrent write never outlives
// that write in the cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/storage"
	"github.com/MyNameIsWhaaat/replytree/internal/comment/tree"
)

const (
	keyPrefix    = "replytree:thread:"
	genPrefix    = "replytree:gen:"
	globalGenKey = "replytree:gen"
)

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

type Repo struct {
	storage.Repository

	kv  KV
	ttl time.Duration
	log zerolog.Logger
}

func New(inner storage.Repository, kv KV, ttl time.Duration, log zerolog.Logger) *Repo {
	return &Repo{
		Repository: inner,
		kv:         kv,
		ttl:        ttl,
		log:        log.With().Str("component", "thread_cache").Logger(),
	}
}

func threadKey(postID string) string {
	return keyPrefix + postID
}

func genKey(postID string) string {
	return genPrefix + postID
}

func (r *Repo) GetThread(ctx context.Context, postID string) (tree.Tree, error) {
	key := threadKey(postID)

	data, err := r.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t tree.Tree
		if err := json.Unmarshal(data, &t); err == nil {
			return t, nil
		}
		r.log.Warn().Str("post_id", postID).Msg("dropping undecodable cached thread")
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn().Err(err).Str("post_id", postID).Msg("cache read failed")
	}

	gen, genErr := r.generation(ctx, postID)

	t, err := r.Repository.GetThread(ctx, postID)
	if err != nil {
		return tree.Tree{}, err
	}
	if genErr != nil || !r.current(ctx, postID, gen) {
		return t, nil
	}

	data, err = json.Marshal(t)
	if err != nil {
		return t, nil
	}
	if err := r.kv.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("post_id", postID).Msg("cache write failed")
		return t, nil
	}
	// a write may have landed between the check and the Set
	if !r.current(ctx, postID, gen) {
		r.drop(ctx, postID)
	}
	return t, nil
}

// generation identifies the cache epoch of a post. Missing counters read as
// zero.
func (r *Repo) generation(ctx context.Context, postID string) (string, error) {
	post, err := r.counter(ctx, genKey(postID))
	if err != nil {
		return "", err
	}
	global, err := r.counter(ctx, globalGenKey)
	if err != nil {
		return "", err
	}
	return post + "/" + global, nil
}

func (r *Repo) counter(ctx context.Context, key string) (string, error) {
	v, err := r.kv.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (r *Repo) current(ctx context.Context, postID, gen string) bool {
	now, err := r.generation(ctx, postID)
	return err == nil && now == gen
}

func (r *Repo) Create(ctx context.Context, c model.Comment) (model.Comment, error) {
	created, err := r.Repository.Create(ctx, c)
	if err != nil {
		return model.Comment{}, err
	}
	r.invalidate(ctx, created.PostID)
	return created, nil
}

func (r *Repo) DeleteSubtree(ctx context.Context, id string) (int, error) {
	postID, err := r.Repository.PostID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := r.Repository.DeleteSubtree(ctx, id)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, postID)
	return n, nil
}

func (r *Repo) SetLike(ctx context.Context, id, userID string, action model.LikeAction) ([]string, bool, error) {
	likes, changed, err := r.Repository.SetLike(ctx, id, userID, action)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return likes, false, nil
	}
	if postID, err := r.Repository.PostID(ctx, id); err == nil {
		r.invalidate(ctx, postID)
	}
	return likes, true, nil
}

// RenameAuthor can touch any thread, so every cached thread is dropped.
func (r *Repo) RenameAuthor(ctx context.Context, authorID, name string) (int, error) {
	n, err := r.Repository.RenameAuthor(ctx, authorID, name)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.flush(ctx)
	}
	return n, nil
}

func (r *Repo) invalidate(ctx context.Context, postID string) {
	if err := r.kv.Incr(ctx, genKey(postID)).Err(); err != nil {
		r.log.Warn().Err(err).Str("post_id", postID).Msg("cache generation bump failed")
	}
	r.drop(ctx, postID)
}

func (r *Repo) drop(ctx context.Context, postID string) {
	if err := r.kv.Del(ctx, threadKey(postID)).Err(); err != nil {
		r.log.Warn().Err(err).Str("post_id", postID).Msg("cache invalidation failed")
	}
}

func (r *Repo) flush(ctx context.Context) {
	if err := r.kv.Incr(ctx, globalGenKey).Err(); err != nil {
		r.log.Warn().Err(err).Msg("cache generation bump failed")
	}

	var cursor uint64
	for {
		keys, next, err := r.kv.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			r.log.Warn().Err(err).Msg("cache scan failed")
			return
		}
		if len(keys) > 0 {
			if err := r.kv.Del(ctx, keys...).Err(); err != nil {
				r.log.Warn().Err(err).Msg("cache flush failed")
			}
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}
