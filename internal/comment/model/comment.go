package model

import "time"

// Comment is a single node of a post's comment thread. Replies keeps the
// children in reply order; ParentID is empty for root comments.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId,omitempty"`
	ParentID   string    `json:"parentId,omitempty"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Likes      []string  `json:"likes"`
	Replies    []Comment `json:"replies"`
}

// Author identifies the acting user as supplied by the identity provider.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Report struct {
	ID         string    `json:"id"`
	CommentID  string    `json:"commentId"`
	PostID     string    `json:"postId"`
	ReporterID string    `json:"reporterId"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}
