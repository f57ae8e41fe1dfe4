package domain

import (
	"time"

	"github.com/google/uuid"
)

// ForumPost is a discussion thread
type ForumPost struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Username   string    `json:"username"`
	Level      int       `json:"level"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	ReplyCount int       `json:"reply_count"`
	ViewCount  int       `json:"view_count"`
	IsPinned   bool      `json:"is_pinned"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ForumReply is a reply to a post, optionally nested under another reply
type ForumReply struct {
	ID            uuid.UUID  `json:"id"`
	PostID        uuid.UUID  `json:"post_id"`
	UserID        uuid.UUID  `json:"user_id"`
	Username      string     `json:"username"`
	Level         int        `json:"level"`
	ParentReplyID *uuid.UUID `json:"parent_reply_id"`
	Content       string     `json:"content"`
	Upvotes       int        `json:"upvotes"`
	Downvotes     int        `json:"downvotes"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ForumPostDetail is a post with its replies
type ForumPostDetail struct {
	*ForumPost
	Replies []*ForumReply `json:"replies"`
}

// PostFilter narrows post listings
type PostFilter struct {
	Category string
	Search   string
}

// CategoryCount is a category with its number of posts
type CategoryCount struct {
	Category  string `json:"category"`
	PostCount int    `json:"post_count"`
}

// Vote directions
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// VoteResult reports the post counters after a vote
type VoteResult struct {
	PostID    uuid.UUID `json:"post_id"`
	Vote      string    `json:"vote"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
}
