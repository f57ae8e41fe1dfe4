package dto

// CreatePostRequest opens a forum thread
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,min=5,max=255"`
	Content  string   `json:"content" validate:"required,min=10"`
	Category string   `json:"category" validate:"required"`
	Tags     []string `json:"tags"`
}

// CreateReplyRequest replies to a post or to another reply
type CreateReplyRequest struct {
	Content       string  `json:"content" validate:"required"`
	ParentReplyID *string `json:"parent_reply_id" validate:"omitempty,uuid"`
}

// VoteRequest casts a vote on a post
type VoteRequest struct {
	Type string `json:"type" validate:"required,oneof=up down"`
}
