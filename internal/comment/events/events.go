// Package events publishes comment lifecycle events for downstream consumers
// such as moderation and notifications.
package events

import (
	"context"
	"time"
)

type Type string

const (
	CommentCreated  Type = "comment.created"
	CommentDeleted  Type = "comment.deleted"
	CommentLiked    Type = "comment.liked"
	CommentUnliked  Type = "comment.unliked"
	CommentReported Type = "comment.reported"
)

type Event struct {
	Type      Type      `json:"type"`
	CommentID string    `json:"commentId"`
	PostID    string    `json:"postId,omitempty"`
	ActorID   string    `json:"actorId"`
	Count     int       `json:"count,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
